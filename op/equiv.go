package op

// equivalenceGroups lists opcodes that perform the same logical operation
// and differ only in the width of their encoded operand. The first entry of
// each group is its canonical (long) form.
var equivalenceGroups = [][]Code{
	{Branch, BranchShort},
	{BranchTrue, BranchTrueShort},
	{BranchFalse, BranchFalseShort},
	{Leave, LeaveShort},
}

var (
	canonical = map[Code]Code{}
	shortForm = map[Code]Code{}
)

func init() {
	for _, group := range equivalenceGroups {
		long := group[0]
		for _, code := range group {
			canonical[code] = long
		}
		if len(group) > 1 {
			shortForm[long] = group[1]
		}
	}
}

// Canonical returns the long form of the given opcode. Opcodes that are not
// part of an equivalence group are returned unchanged.
func Canonical(c Code) Code {
	if long, ok := canonical[c]; ok {
		return long
	}
	return c
}

// Short returns the short form of the given opcode's group, if it has one.
func Short(c Code) (Code, bool) {
	s, ok := shortForm[Canonical(c)]
	return s, ok
}

// IsShort reports whether the opcode is the short encoding in its group.
func IsShort(c Code) bool {
	s, ok := Short(c)
	return ok && s == c
}

// Equivalent reports whether two opcodes encode the same logical operation.
func Equivalent(a, b Code) bool {
	return Canonical(a) == Canonical(b)
}

// WithForm returns the member of target's group that has the same width as
// like. It is used to turn a BR_S into a LEAVE_S rather than a LEAVE.
func WithForm(target, like Code) Code {
	if IsShort(like) {
		if s, ok := Short(target); ok {
			return s
		}
	}
	return Canonical(target)
}

var (
	compactLoads  = [CompactLocals]Code{LoadLocal0, LoadLocal1, LoadLocal2, LoadLocal3}
	compactStores = [CompactLocals]Code{StoreLocal0, StoreLocal1, StoreLocal2, StoreLocal3}
)

// CompactLocal reports whether c is a compact local access. It returns the
// slot index the opcode implies and the explicit opcode it expands to.
func CompactLocal(c Code) (index int, explicit Code, ok bool) {
	for i := 0; i < CompactLocals; i++ {
		switch c {
		case compactLoads[i]:
			return i, LoadLocal, true
		case compactStores[i]:
			return i, StoreLocal, true
		}
	}
	return 0, Invalid, false
}

// CompactForm returns the compact opcode for an explicit local access to
// the given slot, if one exists.
func CompactForm(explicit Code, index int) (Code, bool) {
	if index < 0 || index >= CompactLocals {
		return Invalid, false
	}
	switch explicit {
	case LoadLocal:
		return compactLoads[index], true
	case StoreLocal:
		return compactStores[index], true
	}
	return Invalid, false
}

// IsLocalLoad reports whether c reads a local slot in either form.
func IsLocalLoad(c Code) bool {
	if c == LoadLocal {
		return true
	}
	_, explicit, ok := CompactLocal(c)
	return ok && explicit == LoadLocal
}

// IsLocalStore reports whether c writes a local slot in either form.
func IsLocalStore(c Code) bool {
	if c == StoreLocal {
		return true
	}
	_, explicit, ok := CompactLocal(c)
	return ok && explicit == StoreLocal
}
