package bytecode

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/deepnoodle-ai/splice/errz"
	"github.com/deepnoodle-ai/splice/op"
)

// Marshal converts a MethodBody into its JSON document form.
func Marshal(body *MethodBody) ([]byte, error) {
	def, err := defFromBody(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(def)
}

// Unmarshal converts a JSON document into a MethodBody.
func Unmarshal(data []byte) (*MethodBody, error) {
	var def bodyDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return bodyFromDef(&def)
}

// MarshalYAML converts a MethodBody into its YAML document form.
func MarshalYAML(body *MethodBody) ([]byte, error) {
	def, err := defFromBody(body)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(def)
}

// UnmarshalYAML converts a YAML document into a MethodBody.
func UnmarshalYAML(data []byte) (*MethodBody, error) {
	var def bodyDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return bodyFromDef(&def)
}

// UnmarshalInstructions decodes a bare JSON array of instructions, the form
// used for finally blocks supplied on their own.
func UnmarshalInstructions(data []byte, locals *LocalTable) ([]*Instruction, error) {
	var defs []instructionDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, err
	}
	return instructionsFromDefs(defs, locals)
}

// UnmarshalInstructionsYAML decodes a bare YAML sequence of instructions.
func UnmarshalInstructionsYAML(data []byte, locals *LocalTable) ([]*Instruction, error) {
	var defs []instructionDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, err
	}
	return instructionsFromDefs(defs, locals)
}

// Serialization types

type instructionDef struct {
	Op        string   `json:"op" yaml:"op"`
	Labels    []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Markers   []string `json:"markers,omitempty" yaml:"markers,omitempty"`
	Literal   *int64   `json:"literal,omitempty" yaml:"literal,omitempty"`
	Target    string   `json:"target,omitempty" yaml:"target,omitempty"`
	Targets   []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	Local     *int     `json:"local,omitempty" yaml:"local,omitempty"`
	LocalType string   `json:"local_type,omitempty" yaml:"local_type,omitempty"`
	Ref       string   `json:"ref,omitempty" yaml:"ref,omitempty"`
}

type bodyDef struct {
	ID           string           `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string           `json:"name" yaml:"name"`
	ReturnType   string           `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	ArgCount     int              `json:"arg_count,omitempty" yaml:"arg_count,omitempty"`
	Locals       *[]string        `json:"locals" yaml:"locals"` // nil when the table is unknown
	Instructions []instructionDef `json:"instructions" yaml:"instructions"`
}

func defFromBody(body *MethodBody) (*bodyDef, error) {
	def := &bodyDef{
		ID:         body.ID,
		Name:       body.Name,
		ReturnType: string(body.ReturnType),
		ArgCount:   body.ArgCount,
	}
	if body.Locals != nil {
		types := make([]string, 0, body.Locals.Len())
		for _, t := range body.Locals.Types() {
			types = append(types, string(t))
		}
		def.Locals = &types
	}
	def.Instructions = make([]instructionDef, 0, len(body.Instructions))
	for i, ins := range body.Instructions {
		insDef, err := defFromInstruction(ins)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		def.Instructions = append(def.Instructions, insDef)
	}
	return def, nil
}

func defFromInstruction(ins *Instruction) (instructionDef, error) {
	if err := ins.Validate(); err != nil {
		return instructionDef{}, err
	}
	def := instructionDef{Op: ins.Code.String()}
	for _, l := range ins.labels {
		def.Labels = append(def.Labels, l.String())
	}
	for _, m := range ins.markers {
		def.Markers = append(def.Markers, m.String())
	}
	switch o := ins.Operand.(type) {
	case Literal:
		v := o.Value
		def.Literal = &v
	case Target:
		def.Target = o.Label.String()
	case Targets:
		def.Targets = make([]string, len(o.Labels))
		for i, l := range o.Labels {
			def.Targets[i] = l.String()
		}
	case LocalRef:
		idx := o.Slot.Index
		def.Local = &idx
		def.LocalType = string(o.Slot.Type)
	case Ref:
		def.Ref = o.Name
	}
	return def, nil
}

func bodyFromDef(def *bodyDef) (*MethodBody, error) {
	body := &MethodBody{
		ID:         def.ID,
		Name:       def.Name,
		ReturnType: Type(def.ReturnType),
		ArgCount:   def.ArgCount,
	}
	if def.Locals != nil {
		body.Locals = NewLocalTable()
		for _, t := range *def.Locals {
			body.Locals.Declare(Type(t))
		}
	}
	instructions, err := instructionsFromDefs(def.Instructions, body.Locals)
	if err != nil {
		return nil, err
	}
	body.Instructions = instructions
	return body, nil
}

func instructionsFromDefs(defs []instructionDef, locals *LocalTable) ([]*Instruction, error) {
	out := make([]*Instruction, 0, len(defs))
	for i, def := range defs {
		ins, err := instructionFromDef(def, locals)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out = append(out, ins)
	}
	return out, nil
}

func instructionFromDef(def instructionDef, locals *LocalTable) (*Instruction, error) {
	code, ok := op.Lookup(def.Op)
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q%s", def.Op, hint(def.Op, op.Names()))
	}
	var operand Operand
	switch kind := op.GetInfo(code).Operand; kind {
	case op.NoOperand:
		operand = None{}
	case op.LiteralOperand:
		if def.Literal == nil {
			return nil, fmt.Errorf("%s requires a literal", def.Op)
		}
		operand = Literal{Value: *def.Literal}
	case op.LabelOperand:
		l, err := ParseLabel(def.Target)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Op, err)
		}
		operand = Target{Label: l}
	case op.LabelsOperand:
		table := make([]Label, len(def.Targets))
		for i, s := range def.Targets {
			l, err := ParseLabel(s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", def.Op, err)
			}
			table[i] = l
		}
		operand = Targets{Labels: table}
	case op.LocalOperand:
		if def.Local == nil {
			return nil, fmt.Errorf("%s requires a local slot", def.Op)
		}
		slot := LocalSlot{Index: *def.Local, Type: Type(def.LocalType)}
		if declared, ok := locals.Lookup(slot.Index); ok && def.LocalType == "" {
			slot = declared
		}
		operand = LocalRef{Slot: slot}
	case op.RefOperand:
		if def.Ref == "" {
			return nil, fmt.Errorf("%s requires a reference", def.Op)
		}
		operand = Ref{Name: def.Ref}
	default:
		return nil, fmt.Errorf("%s: unsupported operand kind %s", def.Op, kind)
	}
	ins := New(code, operand)
	for _, s := range def.Labels {
		l, err := ParseLabel(s)
		if err != nil {
			return nil, err
		}
		ins.AddLabel(l)
	}
	for _, s := range def.Markers {
		m, ok := ParseRegionMarker(s)
		if !ok {
			return nil, fmt.Errorf("unknown region marker %q%s", s, hint(s, regionMarkerNames()))
		}
		ins.AddMarker(m)
	}
	return ins, nil
}

func hint(name string, candidates []string) string {
	if h := errz.DidYouMean(errz.Suggest(name, candidates)); h != "" {
		return " (" + h + ")"
	}
	return ""
}
