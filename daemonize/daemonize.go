// Copyright (c) 2023 BVK Chaitanya

// Package daemonize respawns the current program as a background process.
package daemonize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/steambot/ctxutil"
	"golang.org/x/sys/unix"
)

// CheckFunc verifies that the background process is initialized. It returns
// true for retry when the background process may still be initializing.
type CheckFunc func(ctx context.Context, child *os.Process) (retry bool, err error)

// Daemonize respawns the current program in the background with the same
// command-line arguments. It *must* be called during the program startup
// before opening databases, starting servers, etc.
//
// An environment variable named by envKey identifies the background process;
// its value holds the parent process pid and must not be used by any other
// process.
//
// Standard input and outputs of the background process are replaced with
// /dev/null and the standard library log is redirected to syslog.
//
// Parent process uses the check function to wait for the background process
// to initialize successfully or die. When successful, Daemonize returns nil
// to the background process and exits the parent process. When unsuccessful,
// Daemonize returns non-nil error to the parent process and exits the
// background process.
func Daemonize(ctx context.Context, envKey string, check CheckFunc) error {
	if len(envKey) == 0 {
		return fmt.Errorf("environment variable name cannot be empty: %w", os.ErrInvalid)
	}
	if v := os.Getenv(envKey); len(v) == 0 {
		if err := daemonizeParent(ctx, envKey, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := daemonizeChild(); err != nil {
		os.Exit(1)
	}
	return nil
}

func daemonizeParent(ctx context.Context, envKey string, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("failed to lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}

	file, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer file.Close()

	// Receive signal when child-process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	// Background process inherits the environment, which may carry the
	// credentials.
	env := append(os.Environ(), fmt.Sprintf("%s=%d", envKey, os.Getpid()))
	attr := &os.ProcAttr{
		Dir:   "/",
		Env:   env,
		Files: []*os.File{file, file, file},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	if check == nil {
		return nil
	}

	for ctxutil.Sleep(ctx, time.Second) == nil {
		retry, err := check(ctx, child)
		if err == nil {
			return nil
		}
		if !retry {
			child.Kill()
			return fmt.Errorf("background process failed to initialize: %w", err)
		}
		slog.WarnContext(ctx, "daemon process not yet initialized", "err", err)
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, context.Canceled) {
		cause = fmt.Errorf("background process has died or was interrupted")
	}
	return fmt.Errorf("could not initialize the background process: %w", cause)
}

func daemonizeChild() error {
	syslogger, err := syslog.New(syslog.LOG_INFO, filepath.Base(os.Args[0]))
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
