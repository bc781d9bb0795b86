package errz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractViolationMessage(t *testing.T) {
	err := Violation(C201, 4)
	assert.Equal(t, "contract violation C201 at instruction 4: return inside a finally block", err.Error())

	err = Violationf(C104, -1, "got %d instructions", 0)
	assert.Equal(t, "contract violation C104: got 0 instructions", err.Error())
}

func TestContractViolationIs(t *testing.T) {
	var err error = Violation(C301, 2)
	assert.True(t, errors.Is(err, ErrContractViolation))
	assert.False(t, errors.Is(err, ErrToolingUnavailable))

	wrapped := fmt.Errorf("wrap: %w", err)
	var cv *ContractViolation
	require.True(t, errors.As(wrapped, &cv))
	assert.Equal(t, C301, cv.Rule)
	assert.Equal(t, 2, cv.Index)
}

func TestContractViolationCause(t *testing.T) {
	cause := errors.New("underlying")
	err := Violation(C107, 0).WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestToolingUnavailable(t *testing.T) {
	err := Unavailable(2, "no locals table")
	assert.True(t, errors.Is(err, ErrToolingUnavailable))
	assert.Equal(t, "tooling unavailable for local slot 2: no locals table", err.Error())
}

func TestViolations(t *testing.T) {
	var v Violations
	assert.False(t, v.HasErrors())
	assert.Nil(t, v.ToError())

	v.Add(Violation(C204, 1))
	single := v.ToError()
	var cv *ContractViolation
	require.True(t, errors.As(single, &cv))
	assert.Equal(t, C204, cv.Rule)

	v.Add(Violation(C201, 3))
	assert.Equal(t, 2, v.Count())
	err := v.ToError()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractViolation))

	all := All(err)
	require.Len(t, all, 2)
	assert.Equal(t, C204, all[0].Rule)
	assert.Equal(t, C201, all[1].Rule)
	assert.True(t, HasRule(err, C201))
	assert.False(t, HasRule(err, C301))
}

func TestRuleDescription(t *testing.T) {
	assert.Equal(t, "finally block is empty", C104.Description())
	assert.Equal(t, "unknown rule", Rule("C999").Description())
	assert.Equal(t, "C406", C406.String())
}

func TestSuggest(t *testing.T) {
	candidates := []string{"LEAVE", "LEAVE_S", "LOAD_CONST", "LOAD_ARG", "NOP", "POP"}

	assert.Equal(t, []string{"LOAD_CONST"}, Suggest("LOAD_CONS", candidates))
	assert.Equal(t, []string{"LOAD_CONST"}, Suggest("load_const_", candidates))
	assert.Equal(t, []string{"LEAVE"}, Suggest("LEAV", candidates))
	assert.Equal(t, []string{"LEAVE", "LEAVE_S"}, Suggest("LEAVE_", candidates))
	assert.Equal(t, []string{"POP"}, Suggest("nop", candidates))
	assert.Empty(t, Suggest("THROW", candidates))
	assert.Empty(t, Suggest("", candidates))
}

func TestDidYouMean(t *testing.T) {
	assert.Equal(t, "", DidYouMean(nil))
	assert.Equal(t, "did you mean NOP?", DidYouMean([]string{"NOP"}))
	assert.Equal(t, "did you mean one of LEAVE, LEAVE_S?", DidYouMean([]string{"LEAVE", "LEAVE_S"}))
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("BR", "BR"))
	assert.Equal(t, 3, editDistance("", "ABC"))
	assert.Equal(t, 1, editDistance("BR_S", "BR_"))
	assert.Equal(t, 3, editDistance("kitten", "sitting"))
}
