package bytecode

import (
	"sort"

	"github.com/deepnoodle-ai/splice/errz"
)

// RegionMarker tags the first or last instruction of an exception region.
type RegionMarker uint8

const (
	BeginTry RegionMarker = iota + 1
	// BeginCatch is part of the format but no rewrite produces it.
	BeginCatch
	BeginFinally
	EndRegion
)

var markerNames = map[RegionMarker]string{
	BeginTry:     "BEGIN_TRY",
	BeginCatch:   "BEGIN_CATCH",
	BeginFinally: "BEGIN_FINALLY",
	EndRegion:    "END_REGION",
}

// String returns the marker name.
func (m RegionMarker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}
	return "UNKNOWN_MARKER"
}

// ParseRegionMarker parses a marker name produced by RegionMarker.String.
func ParseRegionMarker(s string) (RegionMarker, bool) {
	for m, name := range markerNames {
		if name == s {
			return m, true
		}
	}
	return 0, false
}

func regionMarkerNames() []string {
	return []string{BeginTry.String(), BeginCatch.String(), BeginFinally.String(), EndRegion.String()}
}

// Region describes one try/finally block by instruction index.
type Region struct {
	TryStart     int // Index carrying BeginTry
	FinallyStart int // Index carrying BeginFinally
	End          int // Index carrying EndRegion (last finally instruction)
}

// InTry reports whether the instruction at index i is protected by the try
// part of the region.
func (r Region) InTry(i int) bool {
	return i >= r.TryStart && i < r.FinallyStart
}

// InFinally reports whether the instruction at index i belongs to the
// finally part of the region.
func (r Region) InFinally(i int) bool {
	return i >= r.FinallyStart && i <= r.End
}

// Contains reports whether index i is anywhere inside the region.
func (r Region) Contains(i int) bool {
	return i >= r.TryStart && i <= r.End
}

// Encloses reports whether other lies entirely inside r.
func (r Region) Encloses(other Region) bool {
	return r.TryStart <= other.TryStart && other.End <= r.End && r != other
}

// Regions derives the region table from the markers attached to the body's
// instructions. Markers on one instruction are processed in order, so an
// instruction may close one region and open the next. The table is ordered by
// TryStart, outer regions before the regions they enclose.
func (b *MethodBody) Regions() ([]Region, error) {
	type open struct {
		region      Region
		seenFinally bool
	}
	var (
		stack  []open
		result []Region
	)
	for i, ins := range b.Instructions {
		for _, m := range ins.markers {
			switch m {
			case BeginTry:
				stack = append(stack, open{region: Region{TryStart: i, FinallyStart: -1, End: -1}})
			case BeginFinally:
				if len(stack) == 0 {
					return nil, errz.Violationf(errz.C403, i, "BEGIN_FINALLY without an open try region")
				}
				top := &stack[len(stack)-1]
				if top.seenFinally {
					return nil, errz.Violationf(errz.C403, i, "second BEGIN_FINALLY for the region opened at %d", top.region.TryStart)
				}
				if i == top.region.TryStart {
					return nil, errz.Violationf(errz.C403, i, "empty try region")
				}
				top.region.FinallyStart = i
				top.seenFinally = true
			case EndRegion:
				if len(stack) == 0 {
					return nil, errz.Violationf(errz.C403, i, "END_REGION without an open region")
				}
				top := stack[len(stack)-1]
				if !top.seenFinally {
					return nil, errz.Violationf(errz.C403, i, "END_REGION before BEGIN_FINALLY for the region opened at %d", top.region.TryStart)
				}
				top.region.End = i
				stack = stack[:len(stack)-1]
				result = append(result, top.region)
			case BeginCatch:
				return nil, errz.Violationf(errz.C405, i, "catch regions are not supported")
			default:
				return nil, errz.Violationf(errz.C403, i, "unknown region marker %d", m)
			}
		}
	}
	if len(stack) > 0 {
		return nil, errz.Violationf(errz.C404, stack[len(stack)-1].region.TryStart, "region is never closed")
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TryStart != result[j].TryStart {
			return result[i].TryStart < result[j].TryStart
		}
		return result[i].End > result[j].End
	})
	return result, nil
}
