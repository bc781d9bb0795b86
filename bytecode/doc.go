// Package bytecode provides the mutable instruction model that splice
// rewrites.
//
// # Key Types
//
//   - [Instruction]: one operation with its operand, attached labels and
//     region markers
//   - [Operand]: a closed sum type; the concrete type must match the operand
//     kind the op package declares for the opcode
//   - [Label]: an opaque jump target attached to exactly one instruction
//   - [RegionMarker]: begin/end tags for exception regions
//   - [LocalSlot] and [LocalTable]: local variable storage descriptors
//   - [MethodBody]: the instruction sequence plus the method shape
//   - [Region]: a try/finally block derived from markers (value type)
//
// # Identity
//
// Instructions are referenced by pointer. Rewrites mutate instructions in
// place and insert new ones, so integer positions are only meaningful until
// the next insertion:
//
//	ins := body.At(3)
//	body.Insert(0, bytecode.Op(op.Nop))
//	body.IndexOf(ins) // 4
//
// # Serialization
//
// [Marshal] and [Unmarshal] use a JSON document with symbolic labels
// ("L3") and opcode names; [MarshalYAML] and [UnmarshalYAML] use the same
// document in YAML.
package bytecode
