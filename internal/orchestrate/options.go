// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

// Contract errors, the only failures Search surfaces as error returns.
var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrInvalidOptions = errors.New("invalid search options")
)

// Built-in defaults, overridable via OrchestratorConfig.
const (
	defaultMaxResults  = 20
	defaultMinResults  = 3
	defaultTimeout     = 8 * time.Second
	defaultConcurrency = 4
)

// normalize validates opts and fills in defaults, returning the copy the
// rest of the pipeline works on. Fast mode halves timeout and concurrency
// after defaulting.
func (o *Orchestrator) normalize(opts types.SearchOptions) (types.SearchOptions, error) {
	if opts.MaxResults < 0 {
		return opts, fmt.Errorf("%w: negative max results %d", ErrInvalidOptions, opts.MaxResults)
	}
	if opts.MinResults < 0 {
		return opts, fmt.Errorf("%w: negative min results %d", ErrInvalidOptions, opts.MinResults)
	}
	if opts.Timeout < 0 {
		return opts, fmt.Errorf("%w: negative timeout %s", ErrInvalidOptions, opts.Timeout)
	}
	if opts.Concurrency < 0 {
		return opts, fmt.Errorf("%w: negative concurrency %d", ErrInvalidOptions, opts.Concurrency)
	}
	if opts.FromYear > 0 && opts.ToYear > 0 && opts.FromYear > opts.ToYear {
		return opts, fmt.Errorf("%w: year range %d-%d is inverted", ErrInvalidOptions, opts.FromYear, opts.ToYear)
	}
	for id, w := range opts.SourceWeights {
		if w < 0 {
			return opts, fmt.Errorf("%w: negative weight %f for source %s", ErrInvalidOptions, w, id)
		}
	}

	if opts.MaxResults == 0 {
		opts.MaxResults = o.cfg.MaxResults
		if opts.MaxResults <= 0 {
			opts.MaxResults = defaultMaxResults
		}
	}
	if opts.MinResults == 0 {
		opts.MinResults = o.cfg.MinResults
		if opts.MinResults <= 0 {
			opts.MinResults = defaultMinResults
		}
	}
	if opts.MinResults > opts.MaxResults {
		opts.MinResults = opts.MaxResults
	}
	if opts.Timeout == 0 {
		opts.Timeout = o.cfg.SourceTimeout
		if opts.Timeout <= 0 {
			opts.Timeout = defaultTimeout
		}
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = o.cfg.Concurrency
		if opts.Concurrency <= 0 {
			opts.Concurrency = defaultConcurrency
		}
	}

	if opts.FastMode {
		opts.Timeout /= 2
		opts.Concurrency /= 2
		if opts.Concurrency < 1 {
			opts.Concurrency = 1
		}
	}

	return opts, nil
}
