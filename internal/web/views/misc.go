package views

import (
	"fmt"
	"sort"
	"time"
)

func detailsLine(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out string
	for i, k := range keys {
		if i > 0 {
			out += "; "
		}
		out += k + "=" + stringify(details[k])
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
