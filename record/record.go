package record

// Field is a single named column of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping from field name to Value, produced per query row.
// Build it with New/Set, then treat it as read only: it may be encoded
// concurrently.
type Record struct {
	fields []Field
	index  map[string]int
}

// New creates a Record from fields. A duplicated name replaces the earlier
// value but keeps the earlier position.
func New(fields ...Field) *Record {
	rec := &Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		rec.Set(f.Name, f.Value)
	}
	return rec
}

// FromColumns creates a Record from parallel column names and values.
// It panics if lengths differ.
func FromColumns(names []string, vals []Value) *Record {
	if len(names) != len(vals) {
		panic("record.FromColumns: len(names) != len(vals)")
	}
	rec := &Record{
		fields: make([]Field, 0, len(names)),
		index:  make(map[string]int, len(names)),
	}
	for i, name := range names {
		rec.Set(name, vals[i])
	}
	return rec
}

// Set sets name to v. An existing name keeps its position.
func (rec *Record) Set(name string, v Value) {
	if rec.index == nil {
		rec.index = make(map[string]int)
	}
	if i, ok := rec.index[name]; ok {
		rec.fields[i].Value = v
		return
	}
	rec.index[name] = len(rec.fields)
	rec.fields = append(rec.fields, Field{Name: name, Value: v})
}

// Get returns the value of name.
func (rec *Record) Get(name string) (Value, bool) {
	if i, ok := rec.index[name]; ok {
		return rec.fields[i].Value, true
	}
	return Value{}, false
}

// Len returns the number of fields.
func (rec *Record) Len() int {
	return len(rec.fields)
}

// Fields returns a copy of the fields in order.
func (rec *Record) Fields() []Field {
	ret := make([]Field, len(rec.fields))
	copy(ret, rec.fields)
	return ret
}

// Range calls fn for each field in order until fn returns false.
func (rec *Record) Range(fn func(name string, v Value) bool) {
	for _, f := range rec.fields {
		if !fn(f.Name, f.Value) {
			return
		}
	}
}

// Interface converts rec to map[string]interface{}, see Value.Interface.
func (rec *Record) Interface() (map[string]interface{}, error) {
	c := &ifaceConverter{}
	return c.object(rec, "$", 0)
}
