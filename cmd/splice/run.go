package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/op"
	"github.com/deepnoodle-ai/splice/vm"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run BODY [ARGS...]",
		Short: "Execute a method body in the reference virtual machine",
		Long: `Execute a method body over integer values.

Every CALL and JMP reference resolves to a native that logs its name. A JMP
native pushes the value given with --native NAME=VALUE, or 0.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runHandler,
	}
	flags := cmd.Flags()
	flags.StringToInt64("native", nil, "value pushed by a JMP native (NAME=VALUE, repeatable)")
	flags.Int("step-limit", vm.DefaultStepLimit, "maximum number of instructions to execute (0 for no limit)")
	flags.Bool("trace", false, "log every executed instruction at debug level")
	flags.Bool("timing", false, "show execution time")
	return cmd
}

func parseArgs(args []string) ([]int64, error) {
	values := make([]int64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// referencedNatives returns the sorted method references of CALL and JMP
// instructions, and the subset that JMP instructions use.
func referencedNatives(body *bytecode.MethodBody) ([]string, map[string]bool) {
	seen := map[string]bool{}
	jumps := map[string]bool{}
	for _, ins := range body.Instructions {
		if ref, ok := ins.Operand.(bytecode.Ref); ok {
			seen[ref.Name] = true
			if ins.Code == op.Jmp {
				jumps[ref.Name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, jumps
}

// loggingNatives returns a native per referenced name. Each logs its call;
// JMP targets of a method that returns a value also push the configured
// value.
func loggingNatives(body *bytecode.MethodBody, values map[string]int64) map[string]vm.Native {
	names, jumps := referencedNatives(body)
	natives := map[string]vm.Native{}
	for _, name := range names {
		push := jumps[name] && body.ReturnsValue()
		value := values[name]
		natives[name] = func(ctx context.Context, f *vm.Frame) error {
			logger.Info().Str("native", name).Int("args", f.ArgCount()).Msg("call")
			if push {
				return f.Push(value)
			}
			return nil
		}
	}
	return natives
}

type traceObserver struct {
	vm.NoOpObserver
	logger zerolog.Logger
}

func (o *traceObserver) OnStep(event vm.StepEvent) bool {
	o.logger.Debug().
		Int("ip", event.IP).
		Str("op", event.OpcodeName).
		Int("stack", event.StackDepth).
		Int("finally", event.FinallyDepth).
		Msg("step")
	return true
}

func (o *traceObserver) OnReturn(event vm.ReturnEvent) bool {
	o.logger.Debug().Str("method", event.Method).Int64("value", event.Value).Msg("return")
	return true
}

func runHandler(cmd *cobra.Command, args []string) error {
	body, err := loadBody(cmd, args[0])
	if err != nil {
		return err
	}
	values, err := parseArgs(args[1:])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	pushed, _ := flags.GetStringToInt64("native")
	limit, _ := flags.GetInt("step-limit")
	opts := []vm.Option{
		vm.WithNatives(loggingNatives(body, pushed)),
		vm.WithStepLimit(limit),
	}
	if trace, _ := flags.GetBool("trace"); trace {
		opts = append(opts, vm.WithObserver(&traceObserver{logger: logger}))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := vm.Run(ctx, body, values, opts...)
	if err != nil {
		return err
	}
	dt := time.Since(start)

	out := cmd.OutOrStdout()
	switch format := strings.ToLower(viper.GetString("output")); format {
	case "", "text":
		if body.ReturnsValue() {
			fmt.Fprintln(out, result)
		}
	case "json":
		data, err := marshalJSON(map[string]any{"method": body.Name, "result": result})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	if timing, _ := flags.GetBool("timing"); timing {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", dt)
	}
	return nil
}
