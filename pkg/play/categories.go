package play

import (
	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/tidwall/gjson"
)

// minCategoryRecordLen is the shortest array treated as a category record.
const minCategoryRecordLen = 4

type Category struct {
	Name string `json:"name" mapstructure:"name"`
	ID   string `json:"id" mapstructure:"id"`
}

// categories reads the category list of an app root. Apps without one get a
// single category built from the legacy genre fields.
func categories(root gjson.Result) (any, error) {
	var found []Category
	if list, ok := extract.Get(root, pathCategories...); ok {
		found = collectCategories(list, found)
	}
	if len(found) > 0 {
		return found, nil
	}

	name, _ := extract.Get(root, pathGenreName...)
	id, _ := extract.Get(root, pathGenreID...)
	return []Category{{Name: name.String(), ID: id.String()}}, nil
}

// collectCategories descends into nested arrays. An array whose first item is
// a string and that holds at least minCategoryRecordLen items is a record;
// its children are not visited.
func collectCategories(r gjson.Result, acc []Category) []Category {
	if !r.IsArray() {
		return acc
	}
	items := r.Array()
	if len(items) >= minCategoryRecordLen && items[0].Type == gjson.String {
		return append(acc, Category{Name: items[0].Str, ID: items[2].String()})
	}
	for _, sub := range items {
		acc = collectCategories(sub, acc)
	}
	return acc
}
