package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/dis"
	"github.com/deepnoodle-ai/splice/op"
)

// inputFormat returns the configured input format, falling back to the
// file extension. Anything that is not YAML is read as JSON.
func inputFormat(path string) string {
	if format := viper.GetString("input-format"); format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func loadBody(cmd *cobra.Command, path string) (*bytecode.MethodBody, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var body *bytecode.MethodBody
	switch format := inputFormat(path); format {
	case "json":
		body, err = bytecode.Unmarshal(data)
	case "yaml":
		body, err = bytecode.UnmarshalYAML(data)
	default:
		return nil, fmt.Errorf("unknown input format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return body, nil
}

// loadFinally builds the finally block from a file of instructions or from
// a list of method references to call, in that order of preference.
func loadFinally(cmd *cobra.Command, path string, calls []string, locals *bytecode.LocalTable) ([]*bytecode.Instruction, error) {
	if path != "" && len(calls) > 0 {
		return nil, fmt.Errorf("--finally and --finally-call are mutually exclusive")
	}
	if path != "" {
		data, err := readInput(cmd, path)
		if err != nil {
			return nil, err
		}
		var instructions []*bytecode.Instruction
		switch format := inputFormat(path); format {
		case "json":
			instructions, err = bytecode.UnmarshalInstructions(data, locals)
		case "yaml":
			instructions, err = bytecode.UnmarshalInstructionsYAML(data, locals)
		default:
			return nil, fmt.Errorf("unknown input format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return instructions, nil
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("a finally block is required: use --finally or --finally-call")
	}
	instructions := make([]*bytecode.Instruction, len(calls))
	for i, name := range calls {
		instructions[i] = bytecode.Call(op.Call, name)
	}
	return instructions, nil
}

// writeBody prints body in the configured output format.
func writeBody(cmd *cobra.Command, body *bytecode.MethodBody) error {
	out := cmd.OutOrStdout()
	switch format := strings.ToLower(viper.GetString("output")); format {
	case "", "text":
		return dis.Fprint(out, body)
	case "json":
		data, err := bytecode.Marshal(body)
		if err != nil {
			return err
		}
		if data, err = formatJSON(data); err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	case "yaml":
		data, err := bytecode.MarshalYAML(body)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
