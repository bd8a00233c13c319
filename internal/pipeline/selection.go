package pipeline

import (
	"net/url"
	"slices"
	"strings"

	"sales-dashboard/internal/models"
)

// AllValues is the widget sentinel for "every value of this dimension".
const AllValues = "All"

// Selection maps a dimension to its accepted values.
//
// A dimension that is absent, has no values, or contains AllValues is
// unrestricted. There is no way to select nothing: an empty list always
// means every value, for every dimension.
type Selection map[models.Column][]string

// Restricts reports whether sel narrows col to an explicit set of values.
func (s Selection) Restricts(col models.Column) bool {
	vals := s[col]
	return len(vals) > 0 && !slices.Contains(vals, AllValues)
}

// active resolves the sentinel rules into lookup sets, dropping unknown dimensions.
func (s Selection) active() map[models.Column]map[string]struct{} {
	sets := make(map[models.Column]map[string]struct{})
	for col, vals := range s {
		if !models.IsDimension(col) || !s.Restricts(col) {
			continue
		}
		set := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			set[v] = struct{}{}
		}
		sets[col] = set
	}
	return sets
}

// Clone returns a copy that can be modified independently.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for col, vals := range s {
		out[col] = slices.Clone(vals)
	}
	return out
}

// ParseSelection reads dimension filters from query values. Each dimension may be
// repeated (?state=NY&state=CA) or comma separated (?state=NY,CA).
func ParseSelection(values url.Values) Selection {
	sel := make(Selection)
	for key, raw := range values {
		col := models.Column(key)
		if !models.IsDimension(col) {
			continue
		}
		if vals := splitValues(raw); len(vals) > 0 {
			sel[col] = vals
		}
	}
	return sel
}

const viewParamPrefix = "view."

// ParseViewFilters reads per-view narrowing filters (?view.ordersByDay=Monday).
func ParseViewFilters(values url.Values) map[string][]string {
	out := make(map[string][]string)
	for key, raw := range values {
		name, ok := strings.CutPrefix(key, viewParamPrefix)
		if !ok || name == "" {
			continue
		}
		if vals := splitValues(raw); len(vals) > 0 {
			out[name] = vals
		}
	}
	return out
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
