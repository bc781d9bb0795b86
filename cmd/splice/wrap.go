package main

import (
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/splice"
)

func newWrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrap BODY",
		Short: "Protect an instruction range with a try/finally region",
		Long: `Protect body[start:end] with a try region and insert a finally block.

BODY is a method body document in JSON or YAML, or "-" for stdin. The
finally block comes from --finally, a file holding a list of instructions,
or from --finally-call, which builds it from CALL instructions.`,
		Example: `  splice wrap body.json --start 2 --end 9 --finally-call release
  splice wrap body.yaml --finally cleanup.yaml -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: wrapHandler,
	}
	flags := cmd.Flags()
	flags.Int("start", 0, "index of the first protected instruction")
	flags.Int("end", -1, "index one past the last protected instruction (default: end of body)")
	flags.String("finally", "", "file holding the finally instructions")
	flags.StringSlice("finally-call", nil, "method reference to CALL in the finally block (repeatable)")
	flags.Bool("explicit-locals", false, "keep local accesses in explicit form")
	flags.Bool("no-verify", false, "skip verification of the rewritten body")
	return cmd
}

func wrapHandler(cmd *cobra.Command, args []string) error {
	body, err := loadBody(cmd, args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	start, _ := flags.GetInt("start")
	end, _ := flags.GetInt("end")
	if end < 0 {
		end = body.Len()
	}
	finallyPath, _ := flags.GetString("finally")
	calls, _ := flags.GetStringSlice("finally-call")
	finally, err := loadFinally(cmd, finallyPath, calls, body.Locals)
	if err != nil {
		return err
	}

	opts := []splice.Option{splice.WithLogger(logger)}
	if explicit, _ := flags.GetBool("explicit-locals"); explicit {
		opts = append(opts, splice.WithExplicitLocals())
	}
	if noVerify, _ := flags.GetBool("no-verify"); noVerify {
		opts = append(opts, splice.WithoutVerify())
	}

	result, err := splice.Wrap(body, start, end, finally, opts...)
	if err != nil {
		return err
	}
	logger.Info().
		Str("method", result.Body.Name).
		Int("try_start", result.Region.TryStart).
		Int("finally_start", result.Region.FinallyStart).
		Int("end", result.Region.End).
		Msg("wrapped")
	return writeBody(cmd, result.Body)
}
