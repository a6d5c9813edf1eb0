package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	for _, tt := range []struct {
		cfg  Config
		want zapcore.Level
	}{
		{Config{Level: "debug"}, zapcore.DebugLevel},
		{Config{Level: "warn", Development: true}, zapcore.WarnLevel},
		{Config{Level: ""}, zapcore.InfoLevel},
	} {
		logger, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("%+v: %v", tt.cfg, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Errorf("%+v: level %s disabled", tt.cfg, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Errorf("%+v: level below %s enabled", tt.cfg, tt.want)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "chatty"}); err == nil {
		t.Fatal("expected error")
	}
}
