package errz

// Rule identifies the contract a rewrite input violated.
// Rules are organized by category:
//   - C1xx: Range and precondition rules
//   - C2xx: Finally block content rules
//   - C3xx: Branch and region boundary rules
//   - C4xx: Region structure and label resolution rules
type Rule string

const (
	// Range and preconditions (C1xx)
	C101 Rule = "C101" // Try range start is negative
	C102 Rule = "C102" // Try range end exceeds the body
	C103 Rule = "C103" // Try range is empty or inverted
	C104 Rule = "C104" // Finally block is empty
	C105 Rule = "C105" // Try range already carries region markers
	C106 Rule = "C106" // Region falls through past the end of the body
	C107 Rule = "C107" // Instruction operand does not match its opcode

	// Finally block content (C2xx)
	C201 Rule = "C201" // Return inside a finally block
	C202 Rule = "C202" // Indirect jump inside a finally block
	C203 Rule = "C203" // Rethrow inside a finally block
	C204 Rule = "C204" // Branch leaves the finally block
	C205 Rule = "C205" // Finally label already used by the body
	C206 Rule = "C206" // Finally block does not end in END_FINALLY or THROW

	// Branches and boundaries (C3xx)
	C301 Rule = "C301" // Branch enters the protected region from outside
	C302 Rule = "C302" // Branch leaves the protected region without LEAVE
	C303 Rule = "C303" // Return or indirect jump inside a try region
	C304 Rule = "C304" // Trailing pattern could not be located

	// Region structure and labels (C4xx)
	C401 Rule = "C401" // Label is not attached to any instruction
	C402 Rule = "C402" // Label is attached to more than one instruction
	C403 Rule = "C403" // Region markers out of order
	C404 Rule = "C404" // Region not closed
	C405 Rule = "C405" // Unsupported region kind
	C406 Rule = "C406" // Try region does not end in LEAVE or THROW
)

var ruleDescriptions = map[Rule]string{
	C101: "try range start is negative",
	C102: "try range end exceeds the body",
	C103: "try range is empty or inverted",
	C104: "finally block is empty",
	C105: "try range already carries region markers",
	C106: "region falls through past the end of the body",
	C107: "instruction operand does not match its opcode",
	C201: "return inside a finally block",
	C202: "indirect jump inside a finally block",
	C203: "rethrow inside a finally block",
	C204: "branch leaves the finally block",
	C205: "finally label already used by the body",
	C206: "finally block does not end in END_FINALLY or THROW",
	C301: "branch enters the protected region from outside",
	C302: "branch leaves the protected region without LEAVE",
	C303: "return or indirect jump inside a try region",
	C304: "trailing pattern could not be located",
	C401: "label is not attached to any instruction",
	C402: "label is attached to more than one instruction",
	C403: "region markers out of order",
	C404: "region not closed",
	C405: "unsupported region kind",
	C406: "try region does not end in LEAVE or THROW",
}

// Description returns the short description of the rule.
func (r Rule) Description() string {
	if desc, ok := ruleDescriptions[r]; ok {
		return desc
	}
	return "unknown rule"
}

// String returns the rule code.
func (r Rule) String() string {
	return string(r)
}
