package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug", "json")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level not enabled")
	}

	logger = SetupLogger("shouty", "text")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("EXPENSES_CLI_TEST=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("EXPENSES_CLI_TEST")
	})

	LoadEnvFile()
	if got := os.Getenv("EXPENSES_CLI_TEST"); got != "from-dotenv" {
		t.Fatalf("EXPENSES_CLI_TEST = %q", got)
	}
}

func TestGracefulShutdownRunsCleanup(t *testing.T) {
	ran := make(chan struct{})
	ctx, done := GracefulShutdown(SetupLogger("error", "text"), time.Second, func(context.Context) {
		close(ran)
	})

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	if ctx.Err() == nil {
		t.Fatal("context not cancelled")
	}
	select {
	case <-ran:
	default:
		t.Fatal("cleanup did not run")
	}
}
