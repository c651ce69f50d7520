package record

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *Scanner) (lines, terminators []string) {
	t.Helper()
	for s.Scan() {
		lines = append(lines, s.Line())
		terminators = append(terminators, s.Terminator())
	}
	require.NoError(t, s.Err())
	return lines, terminators
}

func TestScanPreservesTerminators(t *testing.T) {
	s := NewScanner(strings.NewReader("a\nb\r\nc"))

	lines, terms := collect(t, s)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
	assert.Equal(t, []string{"\n", "\r\n", ""}, terms, "mixed terminators kept per line; final line unterminated")
}

func TestScanNormalizeTerminators(t *testing.T) {
	s := NewScanner(strings.NewReader("a\r\nb\nc"), NormalizeTerminators())

	lines, terms := collect(t, s)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
	assert.Equal(t, []string{"\n", "\n", ""}, terms)
}

func TestScanEmptyInput(t *testing.T) {
	s := NewScanner(strings.NewReader(""))

	assert.False(t, s.Scan())
	assert.NoError(t, s.Err())
}

func TestScanBlankLines(t *testing.T) {
	s := NewScanner(strings.NewReader("\n\n"))

	lines, terms := collect(t, s)
	assert.Equal(t, []string{"", ""}, lines)
	assert.Equal(t, []string{"\n", "\n"}, terms)
}

func TestScanNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	s := NewScanner(strings.NewReader("é\n"), NFC())

	require.True(t, s.Scan())
	assert.Equal(t, "é", s.Line())
}

type failReader struct{ err error }

func (f failReader) Read([]byte) (int, error) { return 0, f.err }

func TestScanReadError(t *testing.T) {
	boom := errors.New("disk gone")
	s := NewScanner(failReader{err: boom})

	assert.False(t, s.Scan())
	assert.ErrorIs(t, s.Err(), boom)
	assert.False(t, s.Scan(), "scanner stays stopped after an error")
}

func TestScanPartialThenEOF(t *testing.T) {
	// Reader that returns data and io.EOF in the same call.
	s := NewScanner(io.MultiReader(strings.NewReader("only")))

	require.True(t, s.Scan())
	assert.Equal(t, "only", s.Line())
	assert.Equal(t, "", s.Terminator())
	assert.False(t, s.Scan())
	assert.NoError(t, s.Err())
}
