package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	split := CSV()

	tests := []struct {
		name  string
		raw   string
		wants []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted comma", `"a,b",c`, []string{"a,b", "c"}},
		{"doubled quote", `"say ""hi""",x`, []string{`say "hi"`, "x"}},
		{"empty fields", ",,", []string{"", "", ""}},
		{"empty quoted field", `"",a`, []string{"", "a"}},
		{"single field", "abc", []string{"abc"}},
		{"empty line", "", []string{""}},
		{"trailing comma", "a,", []string{"a", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wants, split(tt.raw))
		})
	}
}

func TestCSVBestEffort(t *testing.T) {
	split := CSV()

	// Malformed quoting never fails, it degrades.
	assert.Equal(t, []string{"a,b"}, split(`"a,b`), "unterminated quote runs to end of record")
	assert.Equal(t, []string{`a"b`, "c"}, split(`a"b,c`), "stray quote kept verbatim")
	assert.Equal(t, []string{"ab", "c"}, split(`"a"b,c`), "text after closing quote is appended")
}
