package play

import (
	"context"
	"fmt"

	"github.com/sw33tLie/playscope/pkg/dataset"
	"github.com/sw33tLie/playscope/pkg/extract"
	"github.com/tidwall/gjson"
)

// Permissions returns the permission names of appID grouped by category.
// Names inside a group are sorted.
func (c *Client) Permissions(ctx context.Context, appID, lang, country string) (map[string][]string, error) {
	appID = NormalizeAppID(appID)
	if appID == "" {
		return nil, fmt.Errorf("%w: empty app id", ErrInvalidArgument)
	}
	lang, country = locale(lang, country)

	body, err := permissionsBody(appID)
	if err != nil {
		return nil, err
	}
	resp, err := c.postForm(ctx, BatchURL(lang, country), body)
	if err != nil {
		return nil, fmt.Errorf("fetching permissions of %s: %w", appID, err)
	}
	payload, err := dataset.UnwrapRPC(resp)
	if err != nil {
		return nil, fmt.Errorf("decoding permissions of %s: %w", appID, err)
	}
	return ParsePermissions(payload), nil
}

// ParsePermissions groups a permissions payload. A top level section whose
// first entry is a bare [icon, name] pair has no category and is filed under
// "Uncategorized".
func ParsePermissions(payload gjson.Result) map[string][]string {
	result := make(map[string][]string)
	if !payload.IsArray() {
		return result
	}

	for _, section := range payload.Array() {
		if !section.IsArray() {
			continue
		}
		groups := section.Array()
		if len(groups) == 0 {
			continue
		}
		if first := groups[0]; first.IsArray() && len(first.Array()) == 2 {
			groups = []gjson.Result{uncategorizedGroup(section)}
		}

		for _, group := range groups {
			if !isTruthy(group) {
				continue
			}
			name, _ := extract.Extract(PermissionType, group).(string)
			names, _ := extract.Extract(PermissionList, group).([]string)
			if names == nil {
				names = []string{}
			}
			result[name] = names
		}
	}
	return result
}

// uncategorizedGroup rewrites a bare permission list into the shape of a
// categorized group.
func uncategorizedGroup(list gjson.Result) gjson.Result {
	raw := fmt.Sprintf(`[%q,null,%s,null]`, uncategorized, list.Raw)
	return gjson.Parse(raw)
}
