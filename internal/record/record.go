//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package record

// Record is an ordered set of named, typed, nullable fields. A field that was
// never set reads as null.
type Record struct {
	names  []string
	values map[string]Value
}

// New builds a record from the given fields in order.
func New(fields ...Field) Record {
	r := Record{}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Field is a single named value, used to construct records.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for a Field literal.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Set assigns a field. New names are appended to the field order; existing
// names keep their position.
func (r *Record) Set(name string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the named field, or a null Value if it is absent.
func (r Record) Get(name string) Value {
	return r.values[name]
}

// Has reports whether the field was set, null or not.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Names returns the field names in insertion order.
func (r Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.names) }

// Clone returns a deep copy.
func (r Record) Clone() Record {
	c := Record{
		names:  make([]string, len(r.names)),
		values: make(map[string]Value, len(r.values)),
	}
	copy(c.names, r.names)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Strings renders every field as text, with null fields omitted. It is the
// form used when printing records as JSON and when comparing them in tests.
func (r Record) Strings() map[string]string {
	out := make(map[string]string, len(r.names))
	for _, n := range r.names {
		v := r.values[n]
		if v.IsNull() {
			continue
		}
		out[n] = v.String()
	}
	return out
}

// Map returns the record as name -> Go value, with nulls as nil.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.names))
	for _, n := range r.names {
		out[n] = r.values[n].Any()
	}
	return out
}
