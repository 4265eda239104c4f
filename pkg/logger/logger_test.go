package logger

import (
	"context"
	"testing"
	"time"
)

func TestNewLevels(t *testing.T) {
	if !New("dev").Enabled(context.Background(), -4) {
		t.Fatalf("dev logger should enable debug")
	}
	if New("production").Enabled(context.Background(), -4) {
		t.Fatalf("production logger should not enable debug")
	}
}

func TestShutdownFlushCompletes(t *testing.T) {
	log := New("test")
	log.Info("flush check")

	if err := ShutdownFlush(context.Background(), time.Second); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestShutdownFlushHonorsDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// An already-canceled context must not hang the call.
	deadline := time.After(time.Second)
	done := make(chan struct{})
	go func() {
		_ = ShutdownFlush(ctx, time.Minute)
		close(done)
	}()
	select {
	case <-done:
	case <-deadline:
		t.Fatalf("flush did not return promptly")
	}
}
