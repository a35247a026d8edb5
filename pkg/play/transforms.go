package play

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// Transforms shared by the field tables. Each one rejects a value of the
// wrong shape with an error so that the field falls back.

func wantType(r gjson.Result, t gjson.Type) error {
	if r.Type != t {
		return fmt.Errorf("want %s, got %s", t, r.Type)
	}
	return nil
}

// unescapeText turns an HTML fragment into plain text.
func unescapeText(r gjson.Result) (any, error) {
	if err := wantType(r, gjson.String); err != nil {
		return nil, err
	}
	return html.UnescapeString(strings.ReplaceAll(r.Str, "<br>", "\r\n")), nil
}

// micros converts a price in micro units.
func micros(r gjson.Result) (any, error) {
	if err := wantType(r, gjson.Number); err != nil {
		return nil, err
	}
	return r.Num / 1e6, nil
}

func isFree(r gjson.Result) (any, error) {
	return r.Type == gjson.Number && r.Num == 0, nil
}

// truthy coerces any value to a bool: null, false, 0, "" and empty
// containers are false.
func truthy(r gjson.Result) (any, error) {
	return isTruthy(r), nil
}

func isTruthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	}
	return false
}

// epoch converts seconds since the Unix epoch to a UTC time.
func epoch(r gjson.Result) (any, error) {
	if err := wantType(r, gjson.Number); err != nil {
		return nil, err
	}
	return time.Unix(r.Int(), 0).UTC(), nil
}

func developerID(r gjson.Result) (any, error) {
	if err := wantType(r, gjson.String); err != nil {
		return nil, err
	}
	_, id, ok := strings.Cut(r.Str, "id=")
	if !ok {
		return nil, fmt.Errorf("no id= in %q", r.Str)
	}
	if i := strings.IndexByte(id, '&'); i >= 0 {
		id = id[:i]
	}
	return id, nil
}

// eachAt maps every item of an array to the value found at path.
func eachAt(path ...any) extract.Transform {
	return func(r gjson.Result) (any, error) {
		if !r.IsArray() {
			return nil, fmt.Errorf("want array, got %s", r.Type)
		}
		items := r.Array()
		out := make([]any, 0, len(items))
		for i, item := range items {
			v, err := extract.Lookup(item, path)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, extract.Plain(v))
		}
		return out, nil
	}
}

// histogram reads the rating counts for one to five stars.
func histogram(r gjson.Result) (any, error) {
	out := make([]any, 0, 5)
	for stars := 1; stars <= 5; stars++ {
		v, err := extract.Lookup(r, []any{stars, 1})
		if err != nil {
			return nil, err
		}
		out = append(out, extract.Plain(v))
	}
	return out, nil
}

// descriptionHTML picks the first non-empty description layout.
func descriptionHTML(r gjson.Result) (any, error) {
	for _, path := range [][]any{pathDescription, pathDescriptionAlt} {
		if v, ok := extract.Get(r, path...); ok && isTruthy(v) {
			return extract.Plain(v), nil
		}
	}
	return nil, fmt.Errorf("no description")
}

func description(r gjson.Result) (any, error) {
	v, err := descriptionHTML(r)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("description is %T", v)
	}
	return unescapeText(gjson.Result{Type: gjson.String, Str: s})
}

// permissionNames returns the sorted names ([1]) of a permission group.
func permissionNames(r gjson.Result) (any, error) {
	v, err := eachAt(1)(r)
	if err != nil {
		return nil, err
	}
	items := v.([]any)
	names := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("permission name is %T", it)
		}
		names = append(names, s)
	}
	sort.Strings(names)
	return names, nil
}
