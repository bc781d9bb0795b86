package splice

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/splice/rewrite"
)

// Option configures a Wrap call.
type Option func(*options)

type options struct {
	logger         zerolog.Logger
	describer      rewrite.SlotDescriber
	verify         bool
	explicitLocals bool
	assignID       bool
}

func collectOptions(opts ...Option) *options {
	o := &options{
		logger:   zerolog.Nop(),
		verify:   true,
		assignID: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) rewriteOpts() []rewrite.Option {
	opts := []rewrite.Option{rewrite.WithLogger(o.logger)}
	if o.describer != nil {
		opts = append(opts, rewrite.WithSlotDescriber(o.describer))
	}
	return opts
}

// WithLogger sets the logger passed down to every rewrite pass.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSlotDescriber supplies slot descriptors for compact local accesses
// the body's locals table does not declare.
func WithSlotDescriber(d rewrite.SlotDescriber) Option {
	return func(o *options) {
		o.describer = d
	}
}

// WithoutVerify skips the structural check of the rewritten body.
func WithoutVerify() Option {
	return func(o *options) {
		o.verify = false
	}
}

// WithExplicitLocals keeps every local access in its explicit form instead
// of compacting slots 0 through 3 again after the rewrite.
func WithExplicitLocals() Option {
	return func(o *options) {
		o.explicitLocals = true
	}
}

// WithoutID leaves an empty MethodBody.ID empty. By default Wrap assigns a
// random ID so that log lines from one rewrite can be correlated.
func WithoutID() Option {
	return func(o *options) {
		o.assignID = false
	}
}
