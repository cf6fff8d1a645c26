// Package params is the runtime parameter table exposed through the CLI.
// Values are held as float32 and stored clamped to the row range.
package params

import (
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
	"nrfbsp-go/x/mathx"
)

// IDs of the default table.
const (
	BTN1 uint16 = iota
	BTN2
	BTN3
	BTN4
)

// DefaultTable publishes the debounced button states.
func DefaultTable() []types.ParamDef {
	row := func(id uint16, name, desc string) types.ParamDef {
		return types.ParamDef{
			ID: id, Name: name, Min: 0, Max: 1, Def: 0,
			Type: types.ParamU8, Access: types.RO, Desc: desc,
		}
	}
	return []types.ParamDef{
		row(BTN1, "BTN1", "Button 1 state"),
		row(BTN2, "BTN2", "Button 2 state"),
		row(BTN3, "BTN3", "Button 3 state"),
		row(BTN4, "BTN4", "Button 4 state"),
	}
}

type Table struct {
	defs []types.ParamDef
	vals []float32
	idx  map[uint16]int
}

// Init validates table and loads defaults.
func Init(table []types.ParamDef) (*Table, error) {
	t := &Table{
		defs: append([]types.ParamDef(nil), table...),
		vals: make([]float32, len(table)),
		idx:  make(map[uint16]int, len(table)),
	}
	for i, d := range t.defs {
		if _, dup := t.idx[d.ID]; dup {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "params.init", Msg: "duplicate id " + d.Name}
		}
		if d.Min >= d.Max || !mathx.InRange(d.Def, d.Min, d.Max) {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "params.init", Msg: "bad range " + d.Name}
		}
		t.idx[d.ID] = i
		t.vals[i] = quantise(d.Type, d.Def)
	}
	return t, nil
}

// quantise truncates v to what the declared type can hold.
func quantise(typ types.ParamType, v float32) float32 {
	switch typ {
	case types.ParamU8:
		return float32(mathx.Trunc[uint8](v, 0, 0xFF))
	case types.ParamI8:
		return float32(mathx.Trunc[int8](v, -128, 127))
	case types.ParamU16:
		return float32(mathx.Trunc[uint16](v, 0, 0xFFFF))
	case types.ParamI16:
		return float32(mathx.Trunc[int16](v, -32768, 32767))
	case types.ParamU32:
		return float32(mathx.Trunc[uint32](v, 0, 0xFFFFFFFF))
	case types.ParamI32:
		return float32(mathx.Trunc[int32](v, -2147483648, 2147483647))
	default:
		return v
	}
}

func (t *Table) lookup(id uint16) (int, error) {
	if t == nil {
		return 0, errcode.NotInitialized
	}
	i, ok := t.idx[id]
	if !ok {
		return 0, errcode.UnknownParam
	}
	return i, nil
}

func (t *Table) Get(id uint16) (float32, error) {
	i, err := t.lookup(id)
	if err != nil {
		return 0, err
	}
	return t.vals[i], nil
}

// Set is the external (CLI) write: read-only rows and out-of-range values
// are refused.
func (t *Table) Set(id uint16, v float32) error {
	i, err := t.lookup(id)
	if err != nil {
		return err
	}
	d := t.defs[i]
	if d.Access != types.RW {
		return errcode.ReadOnly
	}
	if !mathx.InRange(v, d.Min, d.Max) {
		return errcode.OutOfRange
	}
	t.vals[i] = quantise(d.Type, v)
	return nil
}

// SetInternal is the firmware write: access is ignored and v is clamped.
func (t *Table) SetInternal(id uint16, v float32) error {
	i, err := t.lookup(id)
	if err != nil {
		return err
	}
	d := t.defs[i]
	t.vals[i] = quantise(d.Type, mathx.Clamp(v, d.Min, d.Max))
	return nil
}

// ByName finds a row by its name.
func (t *Table) ByName(name string) (types.ParamDef, bool) {
	if t == nil {
		return types.ParamDef{}, false
	}
	for _, d := range t.defs {
		if d.Name == name {
			return d, true
		}
	}
	return types.ParamDef{}, false
}

func (t *Table) Def(id uint16) (types.ParamDef, error) {
	i, err := t.lookup(id)
	if err != nil {
		return types.ParamDef{}, err
	}
	return t.defs[i], nil
}

// Table returns the rows in declaration order.
func (t *Table) Table() []types.ParamDef {
	if t == nil {
		return nil
	}
	return t.defs
}
