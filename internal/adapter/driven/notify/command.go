// Package notify implements the Notifier port by running a configured
// external command.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*CommandNotifier)(nil)

// CommandNotifier delivers a message by executing a configured command with
// the message appended as its final argument. With no command configured,
// sends are logged and reported as delivered; the system keeps working
// without an outbound channel.
type CommandNotifier struct {
	command []string
	timeout time.Duration
}

// NewCommandNotifier creates a CommandNotifier. command is argv form; nil or
// empty disables delivery.
func NewCommandNotifier(command []string, timeout time.Duration) *CommandNotifier {
	return &CommandNotifier{command: command, timeout: timeout}
}

// Send runs the command with the message as its last argument, bounded by
// the configured timeout.
func (n *CommandNotifier) Send(ctx context.Context, message string) error {
	if len(n.command) == 0 {
		slog.Info("notification (no command configured)", "message", message)
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	args := append(append([]string(nil), n.command[1:]...), message)
	cmd := exec.CommandContext(runCtx, n.command[0], args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify command %q: %w (output: %s)",
			n.command[0], err, strings.TrimSpace(string(out)))
	}

	slog.Info("notification sent", "command", n.command[0])
	return nil
}
