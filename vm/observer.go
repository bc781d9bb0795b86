package vm

import "github.com/deepnoodle-ai/splice/op"

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	StepNone

	// StepSampled calls OnStep every N instructions.
	StepSampled
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool
}

// NewObserverConfig creates a config with safe defaults.
// ObserveCalls and ObserveReturns default to true.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer receives VM execution events. It is meant for tracing and for
// tests that need to see which paths a rewritten body takes.
//
// Implementations can embed NoOpObserver for methods they don't need.
type Observer interface {
	// Config returns the observer's configuration.
	// Called once at the start of each run.
	Config() ObserverConfig

	// OnStep is called based on the StepMode in the observer's config.
	// Returns false to halt execution immediately.
	OnStep(event StepEvent) bool

	// OnCall is called before a native function runs (if ObserveCalls is
	// true). Returns false to halt execution immediately.
	OnCall(event CallEvent) bool

	// OnReturn is called when the method returns (if ObserveReturns is
	// true). Returns false to halt execution immediately.
	OnReturn(event ReturnEvent) bool
}

// StepEvent contains information about a single instruction step.
type StepEvent struct {
	// IP is the index of the instruction about to execute.
	IP int

	// Opcode is the operation being executed.
	Opcode op.Code

	// OpcodeName is the human-readable name of the opcode.
	OpcodeName string

	// StackDepth is the current depth of the value stack.
	StackDepth int

	// FinallyDepth is the number of finally blocks currently executing.
	FinallyDepth int
}

// CallEvent contains information about a native call.
type CallEvent struct {
	// Name is the reference the instruction carries.
	Name string

	// IP is the index of the CALL or JMP instruction.
	IP int

	// Tail is true for JMP, which does not come back.
	Tail bool
}

// ReturnEvent contains information about a method return.
type ReturnEvent struct {
	// Method is the name of the method returning.
	Method string

	// IP is the index of the instruction that ended the method.
	IP int

	// Value is the returned value. It is zero for void methods.
	Value int64
}

// NoOpObserver is an Observer implementation that does nothing.
// Embed this in your observer to provide default implementations
// for methods you don't need.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}
