package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/rewrite"
)

const incrementYAML = `name: increment
return_type: int32
arg_count: 1
locals: [int32]
instructions:
  - {op: LOAD_ARG, literal: 0}
  - {op: STORE_LOCAL_0}
  - {op: LOAD_LOCAL_0}
  - {op: LOAD_CONST, literal: 1}
  - {op: ADD}
  - {op: RETURN}
`

const incrementJSON = `{
  "name": "increment",
  "return_type": "int32",
  "arg_count": 1,
  "locals": ["int32"],
  "instructions": [
    {"op": "LOAD_ARG", "literal": 0},
    {"op": "STORE_LOCAL_0"},
    {"op": "LOAD_LOCAL_0"},
    {"op": "LOAD_CONST", "literal": 1},
    {"op": "ADD"},
    {"op": "RETURN"}
  ]
}`

type execResult struct {
	stdout string
	stderr string
}

func execute(t *testing.T, stdin string, args ...string) (execResult, error) {
	t.Helper()
	viper.Reset()
	color.NoColor = true

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return execResult{stdout: stdout.String(), stderr: stderr.String()}, err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWrapCommand(t *testing.T) {
	path := writeFile(t, "increment.yaml", incrementYAML)

	res, err := execute(t, "", "wrap", path, "--finally-call", "release", "-o", "yaml")
	require.NoError(t, err)

	body, err := bytecode.UnmarshalYAML([]byte(res.stdout))
	require.NoError(t, err)
	require.NoError(t, rewrite.Verify(body))
	regions, err := body.Regions()
	require.NoError(t, err)
	assert.Equal(t, []bytecode.Region{{TryStart: 0, FinallyStart: 7, End: 8}}, regions)
	assert.NotEmpty(t, body.ID)
}

func TestWrapThenRun(t *testing.T) {
	path := writeFile(t, "increment.json", incrementJSON)
	res, err := execute(t, "", "wrap", path, "--finally-call", "release", "-o", "json", "--log-level", "info")
	require.NoError(t, err)
	assert.Contains(t, res.stderr, "wrapped")

	wrapped := writeFile(t, "wrapped.json", res.stdout)
	res, err = execute(t, "", "run", wrapped, "41", "--log-level", "info")
	require.NoError(t, err)
	assert.Equal(t, "42\n", res.stdout)
	assert.Contains(t, res.stderr, "release")
}

func TestWrapFromStdin(t *testing.T) {
	res, err := execute(t, incrementJSON, "wrap", "-", "--start", "1", "--end", "5", "--finally-call", "release")
	require.NoError(t, err)
	assert.Contains(t, res.stdout, "BEGIN_TRY")
	assert.Contains(t, res.stdout, "BEGIN_FINALLY")
}

func TestWrapWithFinallyFile(t *testing.T) {
	path := writeFile(t, "increment.yaml", incrementYAML)
	finally := writeFile(t, "cleanup.yaml", "- {op: CALL, ref: release}\n- {op: END_FINALLY}\n")

	res, err := execute(t, "", "wrap", path, "--finally", finally, "-o", "yaml")
	require.NoError(t, err)
	body, err := bytecode.UnmarshalYAML([]byte(res.stdout))
	require.NoError(t, err)
	assert.Equal(t, "CALL release [BEGIN_FINALLY]", body.At(7).String())
	assert.Equal(t, "END_FINALLY [END_REGION]", body.At(8).String())
}

func TestWrapErrors(t *testing.T) {
	path := writeFile(t, "increment.yaml", incrementYAML)

	_, err := execute(t, "", "wrap", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a finally block is required")

	_, err = execute(t, "", "wrap", path, "--finally", "x.yaml", "--finally-call", "release")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	_, err = execute(t, "", "wrap", path, "--start", "4", "--end", "2", "--finally-call", "release")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C103")

	_, err = execute(t, "", "wrap", path, "--finally-call", "release", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format: xml")

	_, err = execute(t, "", "wrap", filepath.Join(t.TempDir(), "missing.json"), "--finally-call", "release")
	require.Error(t, err)
}

func TestDisCommand(t *testing.T) {
	path := writeFile(t, "increment.yaml", incrementYAML)
	res, err := execute(t, "", "dis", path)
	require.NoError(t, err)
	assert.Contains(t, res.stdout, "OPCODE")
	assert.Contains(t, res.stdout, "LOAD_ARG")
	assert.Contains(t, res.stdout, "STORE_LOCAL_0")
}

func TestVerifyCommand(t *testing.T) {
	path := writeFile(t, "increment.yaml", incrementYAML)
	res, err := execute(t, "", "verify", path)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", res.stdout)

	res, err = execute(t, "", "verify", path, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"method": "increment", "valid": true}`, res.stdout)

	broken := writeFile(t, "broken.yaml", `name: broken
instructions:
  - {op: NOP, markers: [BEGIN_TRY]}
  - {op: RETURN}
`)
	res, err = execute(t, "", "verify", broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 violation(s)")
	assert.Contains(t, res.stdout, "C404")
}

func TestRunCommand(t *testing.T) {
	path := writeFile(t, "increment.yaml", incrementYAML)
	res, err := execute(t, "", "run", path, "1", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"method": "increment", "result": 2}`, res.stdout)

	_, err = execute(t, "", "run", path, "one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 0")

	_, err = execute(t, "", "run", path, "1", "--step-limit", "2")
	require.Error(t, err)
}

func TestRunJumpNative(t *testing.T) {
	path := writeFile(t, "forward.yaml", `name: forward
return_type: int32
instructions:
  - {op: JMP, ref: target}
`)
	res, err := execute(t, "", "run", path, "--native", "target=9")
	require.NoError(t, err)
	assert.Equal(t, "9\n", res.stdout)
}

func TestVersionCommand(t *testing.T) {
	res, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "dev (commit unknown, built unknown)\n", res.stdout)

	res, err = execute(t, "", "version", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version": "dev", "commit": "unknown", "date": "unknown"}`, res.stdout)
}

func TestConfigFile(t *testing.T) {
	config := writeFile(t, "splice.yaml", "output: json\n")
	res, err := execute(t, "", "version", "--config", config)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version": "dev", "commit": "unknown", "date": "unknown"}`, res.stdout)

	_, err = execute(t, "", "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestInputFormat(t *testing.T) {
	viper.Reset()
	assert.Equal(t, "yaml", inputFormat("a.yaml"))
	assert.Equal(t, "yaml", inputFormat("a.YML"))
	assert.Equal(t, "json", inputFormat("a.json"))
	assert.Equal(t, "json", inputFormat("-"))

	viper.Set("input-format", "YAML")
	defer viper.Reset()
	assert.Equal(t, "yaml", inputFormat("a.json"))
}

func TestViolationLines(t *testing.T) {
	body := &bytecode.MethodBody{Instructions: []*bytecode.Instruction{
		bytecode.Op(0),
	}}
	err := body.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{err.Error()}, violationLines(err))
}
