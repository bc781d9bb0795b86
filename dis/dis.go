// Package dis renders method bodies as instruction tables.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/op"
)

// Instruction is one disassembled row.
type Instruction struct {
	Offset  int
	Labels  []string
	Opcode  string
	Operand string
	Markers []string
	// Region names the innermost region containing the instruction, e.g.
	// "try 0" or "finally 1", where the number indexes the region table.
	Region string
	Flow   op.Flow
}

// Disassemble converts the body into rows. The body must have valid operands
// and well-formed region markers.
func Disassemble(body *bytecode.MethodBody) ([]Instruction, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}
	regions, err := body.Regions()
	if err != nil {
		return nil, err
	}
	var out []Instruction
	for i, ins := range body.Instructions {
		row := Instruction{
			Offset:  i,
			Opcode:  ins.Code.String(),
			Operand: ins.Operand.String(),
			Flow:    ins.Flow(),
			Region:  regionName(regions, i),
		}
		for _, l := range ins.Labels() {
			row.Labels = append(row.Labels, l.String())
		}
		for _, m := range ins.Markers() {
			row.Markers = append(row.Markers, m.String())
		}
		out = append(out, row)
	}
	return out, nil
}

// regionName picks the innermost region. The table lists outer regions
// before the regions they enclose, so the last match wins.
func regionName(regions []bytecode.Region, i int) string {
	name := ""
	for n, r := range regions {
		switch {
		case r.InTry(i):
			name = fmt.Sprintf("try %d", n)
		case r.InFinally(i):
			name = fmt.Sprintf("finally %d", n)
		}
	}
	return name
}

var (
	branchColor  = color.New(color.FgYellow).SprintFunc()
	exitColor    = color.New(color.FgCyan).SprintFunc()
	throwColor   = color.New(color.FgRed).SprintFunc()
	markerColor  = color.New(color.FgMagenta).SprintFunc()
	labelColor   = color.New(color.FgGreen).SprintFunc()
	regionColors = map[string]func(a ...any) string{
		"try":     color.New(color.FgBlue).SprintFunc(),
		"finally": color.New(color.FgHiBlue).SprintFunc(),
	}
)

func opcodeText(ins Instruction) string {
	switch {
	case ins.Flow.IsBranch():
		return branchColor(ins.Opcode)
	case ins.Flow == op.FlowLeave, ins.Flow == op.FlowEndFinally, ins.Flow == op.FlowReturn, ins.Flow == op.FlowJump:
		return exitColor(ins.Opcode)
	case ins.Flow == op.FlowThrow:
		return throwColor(ins.Opcode)
	}
	return ins.Opcode
}

func regionText(region string) string {
	kind, _, _ := strings.Cut(region, " ")
	if fn, ok := regionColors[kind]; ok {
		return paint(fn, region)
	}
	return region
}

func paint(fn func(a ...any) string, s string) string {
	if s == "" {
		return s
	}
	return fn(s)
}

// Print writes the rows as a table. Colors follow color.NoColor.
func Print(instructions []Instruction, writer io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(writer)
	tw.AppendHeader(table.Row{"Offset", "Labels", "Opcode", "Operands", "Region", "Markers"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	for _, ins := range instructions {
		var markers []string
		for _, m := range ins.Markers {
			markers = append(markers, markerColor(m))
		}
		tw.AppendRow(table.Row{
			ins.Offset,
			paint(labelColor, strings.Join(ins.Labels, " ")),
			opcodeText(ins),
			ins.Operand,
			regionText(ins.Region),
			strings.Join(markers, " "),
		})
	}
	tw.Render()
}

// Fprint disassembles body and writes it to writer.
func Fprint(writer io.Writer, body *bytecode.MethodBody) error {
	instructions, err := Disassemble(body)
	if err != nil {
		return err
	}
	Print(instructions, writer)
	return nil
}
