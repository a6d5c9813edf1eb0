package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is one maintenance run. It reports how many items it touched.
type Task func(ctx context.Context) (int, error)

// Job is a named task on a cron schedule. Spec accepts the standard five
// field syntax and descriptors such as "@every 1h" or "@daily".
type Job struct {
	Name string `yaml:"name" json:"name"`
	Spec string `yaml:"spec" json:"spec"`
	Task Task   `yaml:"-" json:"-"`
}

type entry struct {
	job Job
	id  cron.EntryID
}

// Scheduler runs maintenance jobs in the background. A job that is still
// running when its next tick arrives is skipped for that tick.
type Scheduler struct {
	mu     sync.RWMutex
	cron   *cron.Cron
	jobs   map[string]entry
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		jobs:   make(map[string]entry),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. Names are unique.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}
	if job.Task == nil {
		return fmt.Errorf("job %q has no task", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already exists", job.Name)
	}
	id, err := s.cron.AddFunc(job.Spec, func() { _, _ = s.run(job) })
	if err != nil {
		return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Spec, err)
	}
	s.jobs[job.Name] = entry{job: job, id: id}
	return nil
}

func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	s.cron.Remove(e.id)
	delete(s.jobs, name)
	return nil
}

// RunNow runs a job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) (int, error) {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("job %q not found", name)
	}
	return s.run(e.job)
}

// Jobs lists the registered jobs sorted by name.
func (s *Scheduler) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, e.job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Next reports when a job runs next; zero before Start.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(e.id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling, cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(job Job) (int, error) {
	start := time.Now()
	n, err := job.Task(s.ctx)
	if err != nil {
		s.logger.Warn("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return n, err
	}
	s.logger.Info("scheduled job finished",
		zap.String("job", job.Name),
		zap.Int("affected", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}

// cronLogger adapts zap to cron's logging interface.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
