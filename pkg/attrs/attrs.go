// Package attrs reads values back out of slog-style argument lists, the
// form audit events are emitted with.
package attrs

import (
	"fmt"
	"log/slog"
)

// String returns the value logged under key, or "" when the key is absent.
// args may mix alternating key/value pairs with slog.Attr entries, as the
// slog logging methods accept. Values that are neither strings nor
// fmt.Stringers are treated as absent so typed ids can be passed without
// calling String first.
func String(args []any, key string) string {
	for i := 0; i < len(args); i++ {
		switch k := args[i].(type) {
		case slog.Attr:
			if k.Key == key {
				return valueString(k.Value.Any())
			}
		case string:
			if i+1 >= len(args) {
				return ""
			}
			i++
			if k == key {
				return valueString(args[i])
			}
		}
	}
	return ""
}

func valueString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
