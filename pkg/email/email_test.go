package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNameFromEmail(t *testing.T) {
	cases := map[string]string{
		"jane.doe@example.com":      "Jane Doe",
		"JANE_DOE+jobs@example.com": "Jane Doe Jobs",
		"solo@example.com":          "Solo",
		"@example.com":              "Recruiter",
		"...@example.com":           "Recruiter",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, DisplayNameFromEmail(in))
		})
	}
}
