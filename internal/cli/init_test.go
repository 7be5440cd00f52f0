package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	applog "officina/internal/log"
)

func TestGracefulShutdownRunsCleanup(t *testing.T) {
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})

	var cleaned atomic.Bool
	ctx, done := GracefulShutdown(logger, time.Second, func() { cleaned.Store(true) })

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send signal: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-done:
	case <-waitCtx.Done():
		t.Fatal("shutdown did not complete")
	}

	if ctx.Err() == nil {
		t.Fatal("shutdown context should be cancelled")
	}
	if !cleaned.Load() {
		t.Fatal("cleanup did not run")
	}
	WaitForShutdown(ctx, done)
}
