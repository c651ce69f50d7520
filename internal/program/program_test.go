package program

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringSource struct {
	name string
	text string
}

func (s stringSource) Name() string { return s.name }

func (s stringSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.text)), nil
}

// runProgram compiles the YAML and runs it over a single in-memory source.
func runProgram(t *testing.T, yml, input string) string {
	t.Helper()
	p, err := Parse([]byte(yml))
	require.NoError(t, err)
	eng, err := p.Compile()
	require.NoError(t, err)

	var out bytes.Buffer
	err = eng.Run(context.Background(), &out, stringSource{name: "in", text: input})
	require.NoError(t, err)
	return out.String()
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("rules:\n  - whenever: {always: true}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse program")
}

func TestCompileRequiresWhen(t *testing.T) {
	p, err := Parse([]byte("name: p\nrules:\n  - name: loose\n    do: [{emit: true}]\n"))
	require.NoError(t, err)
	_, err = p.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule loose: missing when clause")
}

func TestCompileRejectsTwoSelectors(t *testing.T) {
	p, err := Parse([]byte("rules:\n  - when: {find: x, search: y}\n"))
	require.NoError(t, err)
	_, err = p.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one selector")
}

func TestCompileRejectsBadPattern(t *testing.T) {
	p, err := Parse([]byte("rules:\n  - when: {search: '('}\n"))
	require.NoError(t, err)
	_, err = p.Compile()
	require.Error(t, err)
}

func TestCompileRejectsNonPositiveEvery(t *testing.T) {
	p, err := Parse([]byte("rules:\n  - when: {every: -3}\n"))
	require.NoError(t, err)
	_, err = p.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not positive")
}

func TestCompileRejectsFieldRefInHook(t *testing.T) {
	p, err := Parse([]byte("begin:\n  - print: [\"$1\"]\n"))
	require.NoError(t, err)
	_, err = p.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside a rule")
}

func TestDefaultActionEmitsMatches(t *testing.T) {
	out := runProgram(t, `
rules:
  - when: {search: "ERROR|FATAL"}
`, "ok\nERROR one\nok\nFATAL two\n")
	assert.Equal(t, "ERROR one\nFATAL two\n", out)
}

func TestCountAndReport(t *testing.T) {
	out := runProgram(t, `
begin:
  - set: {errors: 0}
rules:
  - when: {find: ERROR}
    do: [{count: errors}]
end:
  - report: [errors]
`, "ERROR a\nfine\nERROR b\n")
	assert.Equal(t, "errors=2\n", out)
}

func TestSumField(t *testing.T) {
	out := runProgram(t, `
rules:
  - when: {always: true}
    do:
      - sum: {var: total, field: 2}
end:
  - report: [total]
`, "a 1\nb 2.5\nc oops\n")
	// The non-numeric field sums as zero.
	assert.Equal(t, "total=3.5\n", out)
}

func TestPrintFieldReferences(t *testing.T) {
	out := runProgram(t, `
ofs: ","
rules:
  - when: {always: true}
    do:
      - print: ["$1", "$NF", lit]
`, "a b c\nd e\n")
	assert.Equal(t, "a,3,lit\nd,2,lit\n", out)
}

func TestEverySelectsMultiples(t *testing.T) {
	out := runProgram(t, `
rules:
  - when: {every: 2}
`, "1\n2\n3\n4\n5\n")
	assert.Equal(t, "2\n4\n", out)
}

func TestBetweenRange(t *testing.T) {
	out := runProgram(t, `
rules:
  - when:
      between:
        from: {find: BEGIN}
        to: {find: END}
`, "x\nBEGIN\nmid\nEND\ny\nBEGIN\nz\n")
	assert.Equal(t, "BEGIN\nmid\nEND\nBEGIN\nz\n", out)
}

func TestFindAnyLiteral(t *testing.T) {
	out := runProgram(t, `
rules:
  - when: {find_any: [warn, error]}
`, "an error here\nclean\na warn there\n")
	assert.Equal(t, "an error here\na warn there\n", out)
}

func TestCustomSeparators(t *testing.T) {
	out := runProgram(t, `
fs: "literal:,"
ofs: "|"
ors: ";"
rules:
  - when: {always: true}
    do:
      - print: ["$2", "$1"]
`, "a,b\nc,d\n")
	assert.Equal(t, "b|a;d|c;", out)
}

func TestRuleLabelsInStats(t *testing.T) {
	p, err := Parse([]byte(`
rules:
  - name: named
    when: {always: true}
  - when: {find: x}
`))
	require.NoError(t, err)
	eng, err := p.Compile()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, eng.Run(context.Background(), &out, stringSource{name: "in", text: "x\n"}))

	stats := eng.Stats()
	require.Len(t, stats.Rules, 2)
	assert.Equal(t, "named", stats.Rules[0].Label)
	assert.EqualValues(t, 1, stats.Rules[0].Hits)
	assert.Equal(t, "rule-2", stats.Rules[1].Label)
	assert.EqualValues(t, 1, stats.Rules[1].Hits)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/no-such-program.yaml")
	require.Error(t, err)
}
