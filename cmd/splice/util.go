package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/splice/errz"
)

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

func fatal(err error) {
	for _, line := range violationLines(err) {
		fmt.Fprintln(os.Stderr, red(line))
	}
	os.Exit(1)
}

func isTerminalIO() bool {
	stdout := os.Stdout.Fd()
	stderr := os.Stderr.Fd()
	outTerm := isatty.IsTerminal(stdout) || isatty.IsCygwinTerminal(stdout)
	errTerm := isatty.IsTerminal(stderr) || isatty.IsCygwinTerminal(stderr)
	return outTerm && errTerm
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") {
		color.NoColor = true
	}
}

// formatJSON indents a JSON document, with colors unless they are disabled.
func formatJSON(data []byte) ([]byte, error) {
	if color.NoColor {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return prettyjson.Format(data)
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return formatJSON(data)
}

// violationLines renders each contract violation in err on its own line.
// Other errors are rendered as they are.
func violationLines(err error) []string {
	violations := errz.All(err)
	if len(violations) == 0 {
		return []string{err.Error()}
	}
	lines := make([]string, len(violations))
	for i, v := range violations {
		lines[i] = v.Error()
	}
	return lines
}
