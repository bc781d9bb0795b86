package bytecode

// copyInstructions returns deep copies of the given instructions, labels and
// markers included.
func copyInstructions(src []*Instruction) []*Instruction {
	if src == nil {
		return nil
	}
	dst := make([]*Instruction, len(src))
	for i, ins := range src {
		dst[i] = ins.Copy()
	}
	return dst
}

// CopyInstructions returns deep copies of the given instructions. Use it to
// hand the same finally block to more than one rewrite.
func CopyInstructions(src []*Instruction) []*Instruction {
	return copyInstructions(src)
}
