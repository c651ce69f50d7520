package field

import (
	"strings"
)

// CSV returns a splitter for one line of RFC 4180 comma-separated fields.
//
// Inside a quoted field a comma is not a split point and a doubled quote
// escapes a literal quote. Fields cannot span lines: splitting happens after
// line boundaries are already fixed, so an unterminated quote runs to the
// end of the record.
//
// Malformed quoting degrades to a best-effort split instead of failing.
// A stray quote in an unquoted field is kept verbatim.
func CSV() Func {
	return splitCSV
}

func splitCSV(raw string) []string {
	if raw == "" {
		return []string{""}
	}

	var (
		fields []string
		buf    strings.Builder
		quoted bool
	)
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case quoted && c == '"':
			if i+1 < len(raw) && raw[i+1] == '"' {
				// Doubled quote: literal quote character.
				buf.WriteByte('"')
				i += 2
				continue
			}
			quoted = false
			i++
		case !quoted && c == '"' && buf.Len() == 0:
			// Opening quote at the start of a field.
			quoted = true
			i++
		case !quoted && c == ',':
			fields = append(fields, buf.String())
			buf.Reset()
			i++
		default:
			buf.WriteByte(c)
			i++
		}
	}
	// Unterminated quote: best effort, field runs to end of record.
	fields = append(fields, buf.String())
	return fields
}
