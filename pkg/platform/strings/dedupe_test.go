package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: nil},
		{name: "blanks only", input: []string{"", "  "}, want: []string{}},
		{name: "broker list", input: []string{" kafka-1:9092", "kafka-2:9092 ", "kafka-1:9092"}, want: []string{"kafka-1:9092", "kafka-2:9092"}},
		{name: "case is significant", input: []string{"A", "a"}, want: []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}
