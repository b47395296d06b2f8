package attrs

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "agencyhub/pkg/domain"
)

func TestString(t *testing.T) {
	agency := id.AgencyID(uuid.New())

	tests := []struct {
		name string
		args []any
		key  string
		want string
	}{
		{name: "plain pair", args: []any{"resource", "acme"}, key: "resource", want: "acme"},
		{name: "later pair", args: []any{"reason", "x", "resource", "acme"}, key: "resource", want: "acme"},
		{name: "typed id", args: []any{"agency_id", agency}, key: "agency_id", want: agency.String()},
		{name: "slog attr", args: []any{slog.String("reason", "left")}, key: "reason", want: "left"},
		{name: "attr before pair", args: []any{slog.Int("n", 1), "resource", "acme"}, key: "resource", want: "acme"},
		{name: "value is not a key", args: []any{"reason", "resource", "x", "y"}, key: "resource", want: ""},
		{name: "non string value", args: []any{"count", 3}, key: "count", want: ""},
		{name: "dangling key", args: []any{"resource"}, key: "resource", want: ""},
		{name: "missing", args: []any{"reason", "x"}, key: "resource", want: ""},
		{name: "empty", args: nil, key: "resource", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.args, tt.key))
		})
	}
}
