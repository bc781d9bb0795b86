package rewrite

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/splice/bytecode"
)

// Option configures a Rewriter or a canonicalization pass.
type Option func(*config)

type config struct {
	logger    zerolog.Logger
	allocator bytecode.Allocator
	describer SlotDescriber
}

func newConfig(opts []Option) *config {
	cfg := &config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger used for per-step debug output. The default
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithAllocator overrides the label and slot allocator. By default each
// rewrite creates a bytecode.SequentialAllocator for the body it works on.
// A custom allocator must not be shared between concurrent rewrites unless
// it does its own locking.
func WithAllocator(alloc bytecode.Allocator) Option {
	return func(cfg *config) {
		cfg.allocator = alloc
	}
}

// WithSlotDescriber provides slot descriptors for compact local accesses
// that the body's locals table does not declare.
func WithSlotDescriber(d SlotDescriber) Option {
	return func(cfg *config) {
		cfg.describer = d
	}
}
