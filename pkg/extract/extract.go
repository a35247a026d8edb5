// Package extract maps positionally addressed JSON onto named fields.
//
// A Spec describes where one field lives (an optional dataset label plus a
// path of list indexes and object keys), how to post-process it, and what to
// use when the value cannot be found. Every failure is absorbed into the
// fallback: Extract never returns an error and never panics.
package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sw33tLie/playscope/pkg/dataset"
	"github.com/tidwall/gjson"
)

// MaxChainDepth bounds how many fallback specs are tried for one field.
const MaxChainDepth = 8

var ErrLookup = errors.New("lookup failed")

// Transform post-processes the value found at a spec's path.
type Transform func(gjson.Result) (any, error)

// Spec is the declarative rule for one field.
type Spec struct {
	// Dataset is the label of the block to read from. Empty reads the
	// source passed to Extract directly.
	Dataset   string
	Path      []any
	Transform Transform
	// Fallback is either a literal value or another *Spec evaluated against
	// the same source.
	Fallback any
}

// From builds a spec reading from dataset block n.
func From(n int, path ...any) *Spec {
	return &Spec{Dataset: dataset.Key(n), Path: path}
}

// At builds a spec reading from the source root.
func At(path ...any) *Spec {
	return &Spec{Path: path}
}

// Then returns a copy of s with transform fn.
func (s *Spec) Then(fn Transform) *Spec {
	c := *s
	c.Transform = fn
	return &c
}

// Or returns a copy of s with the given fallback.
func (s *Spec) Or(fallback any) *Spec {
	c := *s
	c.Fallback = fallback
	return &c
}

func (s *Spec) String() string {
	parts := make([]string, 0, len(s.Path))
	for _, p := range s.Path {
		parts = append(parts, fmt.Sprint(p))
	}
	if s.Dataset == "" {
		return "[" + strings.Join(parts, ",") + "]"
	}
	return s.Dataset + "[" + strings.Join(parts, ",") + "]"
}

// Extract evaluates spec against src, which is either a dataset.Dataset or a
// gjson.Result. On failure the fallback chain is followed; a literal
// fallback ends the chain.
func Extract(spec *Spec, src any) any {
	for depth := 0; spec != nil && depth < MaxChainDepth; depth++ {
		v, err := spec.Eval(src)
		if err == nil && v != nil {
			return v
		}
		next, ok := spec.Fallback.(*Spec)
		if !ok {
			return spec.Fallback
		}
		spec = next
	}
	return nil
}

// Eval evaluates spec against src without consulting the fallback.
// A JSON null at the end of the path yields (nil, nil).
func (s *Spec) Eval(src any) (v any, err error) {
	root, err := s.root(src)
	if err != nil {
		return nil, err
	}

	r, err := Lookup(root, s.Path)
	if err != nil {
		return nil, err
	}

	if s.Transform == nil {
		return Plain(r), nil
	}

	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("transform on %s panicked: %v", s, p)
		}
	}()
	return s.Transform(r)
}

func (s *Spec) root(src any) (gjson.Result, error) {
	switch t := src.(type) {
	case dataset.Dataset:
		if s.Dataset == "" {
			return gjson.Result{}, fmt.Errorf("%w: %s needs a dataset label", ErrLookup, s)
		}
		r, ok := t[s.Dataset]
		if !ok {
			return gjson.Result{}, fmt.Errorf("%w: dataset %s not present", ErrLookup, s.Dataset)
		}
		return r, nil
	case gjson.Result:
		if s.Dataset != "" {
			return gjson.Result{}, fmt.Errorf("%w: %s needs a dataset, got a plain value", ErrLookup, s)
		}
		return t, nil
	default:
		return gjson.Result{}, fmt.Errorf("%w: unsupported source %T", ErrLookup, src)
	}
}

// Lookup walks path from root. An int step indexes a JSON array (negative
// values count from the end); a string step indexes a JSON object.
func Lookup(root gjson.Result, path []any) (gjson.Result, error) {
	cur := root
	if !cur.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: empty root", ErrLookup)
	}

	for i, step := range path {
		switch idx := step.(type) {
		case int:
			if !cur.IsArray() {
				return gjson.Result{}, fmt.Errorf("%w: step %d: index %d into %s", ErrLookup, i, idx, kind(cur))
			}
			items := cur.Array()
			if idx < 0 {
				idx += len(items)
			}
			if idx < 0 || idx >= len(items) {
				return gjson.Result{}, fmt.Errorf("%w: step %d: index %v out of range (len %d)", ErrLookup, i, step, len(items))
			}
			cur = items[idx]
		case string:
			if !cur.IsObject() {
				return gjson.Result{}, fmt.Errorf("%w: step %d: key %q into %s", ErrLookup, i, idx, kind(cur))
			}
			next, ok := cur.Map()[idx]
			if !ok {
				return gjson.Result{}, fmt.Errorf("%w: step %d: key %q missing", ErrLookup, i, idx)
			}
			cur = next
		default:
			return gjson.Result{}, fmt.Errorf("%w: step %d: unsupported index type %T", ErrLookup, i, step)
		}
	}
	return cur, nil
}

// Get is Lookup with the failure reduced to a boolean.
func Get(root gjson.Result, path ...any) (gjson.Result, bool) {
	r, err := Lookup(root, path)
	return r, err == nil
}

// Plain converts a gjson value into plain Go values. Integral numbers become
// int64, other numbers float64; JSON null becomes nil.
func Plain(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return r.Str
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
				return n
			}
		}
		return r.Num
	case gjson.JSON:
		if r.IsArray() {
			items := r.Array()
			out := make([]any, len(items))
			for i, it := range items {
				out[i] = Plain(it)
			}
			return out
		}
		m := r.Map()
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = Plain(v)
		}
		return out
	}
	return nil
}

func kind(r gjson.Result) string {
	switch {
	case !r.Exists():
		return "nothing"
	case r.IsArray():
		return "array"
	case r.IsObject():
		return "object"
	default:
		return strings.ToLower(r.Type.String())
	}
}
