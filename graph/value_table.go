package graph

import (
	"fmt"
)

// ValueType tags an entry of a ValueTable.
type ValueType int

const (
	ValueTypeUndefined = ValueType(iota)
	ValueTypeTexture
	ValueTypeSamples
	ValueTypeRational
	ValueTypeFloat64
	EndOfValueTypes
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeUndefined:
		return "undefined"
	case ValueTypeTexture:
		return "texture"
	case ValueTypeSamples:
		return "samples"
	case ValueTypeRational:
		return "rational"
	case ValueTypeFloat64:
		return "float64"
	}
	return fmt.Sprintf("unexpected_value_type_%d", int(t))
}

// Value is a single typed, optionally tagged entry.
type Value struct {
	Type  ValueType
	Value any
	Tag   string
}

// ValueTable is an ordered collection of values produced by an
// evaluation. Later entries shadow earlier ones of the same type:
// Take and Get scan from the back.
type ValueTable struct {
	values []Value
}

func (t *ValueTable) IsEmpty() bool {
	return t == nil || len(t.values) == 0
}

func (t *ValueTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

func (t *ValueTable) Push(typ ValueType, v any) {
	t.PushTagged(typ, v, "")
}

func (t *ValueTable) PushTagged(typ ValueType, v any, tag string) {
	t.values = append(t.values, Value{Type: typ, Value: v, Tag: tag})
}

// Get returns the most recently pushed value of the given type
// without removing it, or nil.
func (t *ValueTable) Get(typ ValueType) any {
	if t == nil {
		return nil
	}
	for i := len(t.values) - 1; i >= 0; i-- {
		if t.values[i].Type == typ {
			return t.values[i].Value
		}
	}
	return nil
}

// Take removes and returns the most recently pushed value of the
// given type, or nil.
func (t *ValueTable) Take(typ ValueType) any {
	if t == nil {
		return nil
	}
	for i := len(t.values) - 1; i >= 0; i-- {
		if t.values[i].Type == typ {
			v := t.values[i].Value
			t.values = append(t.values[:i], t.values[i+1:]...)
			return v
		}
	}
	return nil
}

// Merge combines tables in order. Entries from later tables come
// after (and therefore shadow) same-typed entries from earlier ones,
// while unrelated entries all survive.
func Merge(tables ...ValueTable) ValueTable {
	var out ValueTable
	for _, t := range tables {
		out.values = append(out.values, t.values...)
	}
	return out
}
