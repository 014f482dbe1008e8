package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want CommandMsg
		ok   bool
	}{
		{"new", CommandMsg{Name: "new", Args: []string{}}, true},
		{":Column  Site Visit ", CommandMsg{Name: "column", Args: []string{"Site", "Visit"}}, true},
		{"   ", CommandMsg{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := Parse(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	got, _ := Parse("column Site Visit")
	assert.Equal(t, "Site Visit", got.Arg())
}
