package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/splice/errz"
	"github.com/deepnoodle-ai/splice/op"
)

func TestRegionMarkerNames(t *testing.T) {
	for _, m := range []RegionMarker{BeginTry, BeginCatch, BeginFinally, EndRegion} {
		parsed, ok := ParseRegionMarker(m.String())
		require.True(t, ok, m.String())
		assert.Equal(t, m, parsed)
	}
	_, ok := ParseRegionMarker("BEGIN_FAULT")
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN_MARKER", RegionMarker(42).String())
}

func TestRegionPredicates(t *testing.T) {
	r := Region{TryStart: 2, FinallyStart: 5, End: 7}
	assert.False(t, r.InTry(1))
	assert.True(t, r.InTry(2))
	assert.True(t, r.InTry(4))
	assert.False(t, r.InTry(5))
	assert.True(t, r.InFinally(5))
	assert.True(t, r.InFinally(7))
	assert.False(t, r.InFinally(8))
	assert.True(t, r.Contains(7))
	assert.False(t, r.Contains(8))

	assert.True(t, r.Encloses(Region{TryStart: 3, FinallyStart: 4, End: 4}))
	assert.False(t, r.Encloses(r))
	assert.False(t, r.Encloses(Region{TryStart: 1, FinallyStart: 3, End: 4}))
}

func TestRegions(t *testing.T) {
	body := &MethodBody{Instructions: []*Instruction{
		Op(op.Nop).WithMarkers(BeginTry),                       // 0
		Call(op.Call, "a").WithMarkers(BeginTry),               // 1
		Br(op.Leave, 1),                                        // 2
		Call(op.Call, "inner").WithMarkers(BeginFinally),       // 3
		Op(op.EndFinally).WithMarkers(EndRegion),               // 4
		Br(op.Leave, 1).WithLabels(1),                          // 5
		Call(op.Call, "outer").WithMarkers(BeginFinally),       // 6
		Op(op.EndFinally).WithMarkers(EndRegion, BeginTry),     // 7
		Br(op.Leave, 2),                                        // 8
		Op(op.EndFinally).WithMarkers(BeginFinally, EndRegion), // 9
		Op(op.Return).WithLabels(2),                            // 10
	}}
	regions, err := body.Regions()
	require.NoError(t, err)
	assert.Equal(t, []Region{
		{TryStart: 0, FinallyStart: 6, End: 7},
		{TryStart: 1, FinallyStart: 3, End: 4},
		{TryStart: 7, FinallyStart: 9, End: 9},
	}, regions)

	none, err := (&MethodBody{Instructions: []*Instruction{Op(op.Return)}}).Regions()
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRegionsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		body  []*Instruction
		rule  errz.Rule
		index int
	}{
		{
			name:  "finally without try",
			body:  []*Instruction{Op(op.Nop).WithMarkers(BeginFinally)},
			rule:  errz.C403,
			index: 0,
		},
		{
			name: "second finally",
			body: []*Instruction{
				Op(op.Nop).WithMarkers(BeginTry),
				Op(op.Nop).WithMarkers(BeginFinally),
				Op(op.Nop).WithMarkers(BeginFinally),
			},
			rule:  errz.C403,
			index: 2,
		},
		{
			name:  "empty try",
			body:  []*Instruction{Op(op.Nop).WithMarkers(BeginTry, BeginFinally)},
			rule:  errz.C403,
			index: 0,
		},
		{
			name:  "end without region",
			body:  []*Instruction{Op(op.Nop), Op(op.Nop).WithMarkers(EndRegion)},
			rule:  errz.C403,
			index: 1,
		},
		{
			name: "end before finally",
			body: []*Instruction{
				Op(op.Nop).WithMarkers(BeginTry),
				Op(op.Nop).WithMarkers(EndRegion),
			},
			rule:  errz.C403,
			index: 1,
		},
		{
			name: "never closed",
			body: []*Instruction{
				Op(op.Nop),
				Op(op.Nop).WithMarkers(BeginTry),
				Op(op.Nop).WithMarkers(BeginFinally),
			},
			rule:  errz.C404,
			index: 1,
		},
		{
			name: "catch",
			body: []*Instruction{
				Op(op.Nop).WithMarkers(BeginTry),
				Op(op.Nop).WithMarkers(BeginCatch),
			},
			rule:  errz.C405,
			index: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&MethodBody{Instructions: tt.body}).Regions()
			require.Error(t, err)
			var v *errz.ContractViolation
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.rule, v.Rule)
			assert.Equal(t, tt.index, v.Index)
		})
	}
}
