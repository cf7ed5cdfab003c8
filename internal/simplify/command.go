package simplify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/roach88/metricalg/internal/expr"
)

// DefaultCommandTimeout bounds a single external simplification.
const DefaultCommandTimeout = 10 * time.Second

var (
	errEmptyOutput = errors.New("command produced no output")
	errBadOutput   = errors.New("command output is not a formula")
)

// Command runs an external computer-algebra program.
//
// The canonical infix form of the input is written to the program's stdin
// followed by a newline. The program must print one simplified formula in
// the same syntax on stdout and exit 0. Anything else, or running past the
// timeout, is a SimplificationError. The call is never retried.
type Command struct {
	path    string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// CommandOption configures a Command simplifier.
type CommandOption func(*Command)

// WithTimeout overrides DefaultCommandTimeout. Zero means no timeout beyond
// the caller's context.
func WithTimeout(d time.Duration) CommandOption {
	return func(c *Command) {
		c.timeout = d
	}
}

// WithCommandLogger sets the logger. The default discards output.
func WithCommandLogger(l *slog.Logger) CommandOption {
	return func(c *Command) {
		c.logger = l
	}
}

// NewCommand creates a simplifier that runs path with args.
func NewCommand(path string, args []string, opts ...CommandOption) *Command {
	c := &Command{
		path:    path,
		args:    args,
		timeout: DefaultCommandTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Simplify implements Simplifier.
func (c *Command) Simplify(ctx context.Context, e expr.Expr) (expr.Expr, error) {
	backend := "command " + c.path
	if e == nil {
		return nil, newError(backend, e, fmt.Errorf("%w: nil expression", errUnsupported))
	}
	if refs := expr.Refs(e); len(refs) > 0 {
		return nil, newError(backend, e, fmt.Errorf("%w: %s", expr.ErrUnresolvedRef, refs[0]))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	input := expr.String(e)
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = strings.NewReader(input + "\n")
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.logger.Debug("simplifier command finished",
		"path", c.path,
		"input", input,
		"duration", time.Since(start),
		"error", err)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, newError(backend, e, ctxErr)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, newError(backend, e, err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, newError(backend, e, errEmptyOutput)
	}
	result, err := expr.Parse(out)
	if err != nil {
		return nil, newError(backend, e, fmt.Errorf("%w: %v", errBadOutput, err))
	}
	if refs := expr.Refs(result); len(refs) > 0 {
		return nil, newError(backend, e, fmt.Errorf("%w: unknown identifier %s", errBadOutput, refs[0]))
	}
	return result, nil
}
