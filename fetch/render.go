package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// NopRenderer does nothing
type NopRenderer struct{}

// Render implements Renderer
func (NopRenderer) Render(context.Context) error { return nil }

// CommandRenderer renders sign message previews by running an external
// command in the publish directory
type CommandRenderer struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Render runs the command and waits for it to exit
func (r *CommandRenderer) Render(ctx context.Context) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Dir = r.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", r.Command, err, msg)
		}
		return fmt.Errorf("%s: %w", r.Command, err)
	}

	log.Debug().
		Str("command", r.Command).
		Dur("duration", time.Since(start)).
		Msg("Rendered sign messages")
	return nil
}
