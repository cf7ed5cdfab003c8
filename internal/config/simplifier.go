package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/metricalg/internal/simplify"
)

// NewSimplifier builds the configured backend, wrapped in a cache when
// Cache is set.
func (c SimplifierConfig) NewSimplifier(logger *slog.Logger) (simplify.Simplifier, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var s simplify.Simplifier
	switch c.Backend {
	case BackendRational, "":
		s = simplify.NewRational(
			simplify.WithMaxTerms(c.MaxTerms),
			simplify.WithRationalLogger(logger),
		)
	case BackendCommand:
		if c.Command == "" {
			return nil, fmt.Errorf("simplifier backend %q needs a command", c.Backend)
		}
		s = simplify.NewCommand(c.Command, c.Args,
			simplify.WithTimeout(c.Timeout),
			simplify.WithCommandLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown simplifier backend %q", c.Backend)
	}
	if c.Cache {
		s = simplify.NewCached(s)
	}
	return s, nil
}
