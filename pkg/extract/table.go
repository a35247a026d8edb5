package extract

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Field names one spec in a table.
type Field struct {
	Name string
	Spec *Spec
}

// Table is an ordered set of fields for one entity kind.
type Table []Field

// Record is the flat mapping produced by a table.
type Record map[string]any

// Extract evaluates every field against src.
func (t Table) Extract(src any) Record {
	rec := make(Record, len(t))
	for _, f := range t {
		rec[f.Name] = Extract(f.Spec, src)
	}
	return rec
}

// Names returns the field names in table order.
func (t Table) Names() []string {
	names := make([]string, len(t))
	for i, f := range t {
		names[i] = f.Name
	}
	return names
}

// String returns the field as a string, or "" if absent or not a string.
func (r Record) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// Decode copies the record into out (a pointer to a struct) matching fields
// through their `mapstructure` tags. Numbers are converted between widths
// and time.Time values are kept as-is.
func (r Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			timeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(r))
}

// timeHook passes time.Time through untouched and maps nil to the zero time.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	if data == nil {
		return time.Time{}, nil
	}
	if t, ok := data.(time.Time); ok {
		return t, nil
	}
	return data, nil
}
