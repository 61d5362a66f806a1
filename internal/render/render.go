// Package render substitutes {{field}} and {{data.field}} placeholder
// tokens in email subjects and bodies.
package render

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var leftoverToken = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Render replaces every {{k}} token with the string form of fields[k] and
// every {{data.k}} token with the string form of data[k], then strips any
// token that remained unresolved. Matching is exact on the bracketed name;
// replacement across keys is order-insensitive. Pure, no I/O.
func Render(template string, fields map[string]any, data map[string]any) string {
	result := template

	for key, value := range fields {
		result = strings.ReplaceAll(result, "{{"+key+"}}", stringify(value))
	}
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{data."+key+"}}", stringify(value))
	}

	return leftoverToken.ReplaceAllString(result, "")
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case time.Time:
		return val.Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.Format(time.RFC3339)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
