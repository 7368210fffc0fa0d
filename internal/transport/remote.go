// Package transport moves cutout files to remote storage targets over the
// system's ssh and scp binaries.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandRunner abstracts process execution so tests can fake the remote
// side. Run returns an *exec.ExitError for non-zero exits.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return err
		}
		return fmt.Errorf("%w: %s", err, msg)
	}
	return nil
}

// SSH performs remote existence probes, directory creation, and secure copy.
type SSH struct {
	runner CommandRunner
	logger *slog.Logger
}

// NewSSH creates a transport backed by the system ssh/scp binaries.
func NewSSH(logger *slog.Logger) *SSH {
	return &SSH{runner: execRunner{}, logger: logger}
}

// NewSSHWithRunner creates a transport with an injected runner, for tests.
func NewSSHWithRunner(runner CommandRunner, logger *slog.Logger) *SSH {
	return &SSH{runner: runner, logger: logger}
}

// FileExists probes for a file on the remote host. A non-zero exit from the
// test command means the file is absent, not an error.
func (s *SSH) FileExists(ctx context.Context, host, remotePath string) (bool, error) {
	err := s.runner.Run(ctx, "ssh", host, "test -f "+shellQuote(remotePath))
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("remote existence probe %s: %w", host, err)
}

// Mkdir creates a directory (and parents) on the remote host.
func (s *SSH) Mkdir(ctx context.Context, host, dir string) error {
	if err := s.runner.Run(ctx, "ssh", host, "mkdir -p "+shellQuote(dir)); err != nil {
		return fmt.Errorf("create remote dir %s:%s: %w", host, dir, err)
	}
	return nil
}

// Copy uploads a local file to host:remotePath via scp.
func (s *SSH) Copy(ctx context.Context, localPath, host, remotePath string) error {
	destination := host + ":" + remotePath
	s.logger.Info("copying to remote target", "local", localPath, "destination", destination)
	if err := s.runner.Run(ctx, "scp", localPath, destination); err != nil {
		return fmt.Errorf("copy to %s: %w", destination, err)
	}
	return nil
}

// shellQuote single-quotes a string for the remote shell, escaping embedded
// single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
