package action

// Partition splits plans into those that may run immediately and those
// waiting on the user.
func Partition(plans []Plan) (auto, needsApproval []Plan) {
	for _, p := range plans {
		if p.RequiresApproval {
			needsApproval = append(needsApproval, p)
		} else {
			auto = append(auto, p)
		}
	}
	return auto, needsApproval
}

// NeedsApproval reports whether the batch must be held for approval. One
// plan requiring approval holds the whole batch, including its safe plans.
func NeedsApproval(plans []Plan) bool {
	_, held := Partition(plans)
	return len(held) > 0
}

// CountDestructive returns how many plans are destructive.
func CountDestructive(plans []Plan) int {
	n := 0
	for _, p := range plans {
		if p.Destructive {
			n++
		}
	}
	return n
}

// Approve marks the pending plan with id as approved. Plans in any other
// state are left as they are.
func Approve(plans []Plan, id string) []Plan {
	return resolve(plans, StatusApproved, func(p Plan) bool { return p.ID == id })
}

// Reject marks the pending plan with id as rejected.
func Reject(plans []Plan, id string) []Plan {
	return resolve(plans, StatusRejected, func(p Plan) bool { return p.ID == id })
}

// ApproveAll approves every pending plan.
func ApproveAll(plans []Plan) []Plan {
	return resolve(plans, StatusApproved, func(Plan) bool { return true })
}

// Pending returns the plans still waiting on a decision.
func Pending(plans []Plan) []Plan {
	var out []Plan
	for _, p := range plans {
		if p.Status == StatusPending {
			out = append(out, p)
		}
	}
	return out
}

func resolve(plans []Plan, to Status, match func(Plan) bool) []Plan {
	out := clonePlans(plans)
	for i := range out {
		if out[i].Status == StatusPending && match(out[i]) {
			out[i].Status = to
		}
	}
	return out
}
