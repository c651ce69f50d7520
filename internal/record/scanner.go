package record

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ScanOption configures a Scanner.
type ScanOption func(*Scanner)

// NormalizeTerminators rewrites every observed terminator to "\n" instead of
// preserving the exact bytes read. The final unterminated line stays
// unterminated.
func NormalizeTerminators() ScanOption {
	return func(s *Scanner) { s.normalizeEOL = true }
}

// NFC normalizes each line's text to Unicode NFC form before it is exposed.
func NFC() ScanOption {
	return func(s *Scanner) { s.nfc = true }
}

// Scanner reads a stream line by line, keeping each line's terminator
// separate from its content. Mixed terminators within one stream are
// preserved per line.
type Scanner struct {
	r            *bufio.Reader
	line         string
	terminator   string
	err          error
	normalizeEOL bool
	nfc          bool
}

// NewScanner wraps r for terminator-aware line reading.
func NewScanner(r io.Reader, opts ...ScanOption) *Scanner {
	s := &Scanner{r: bufio.NewReader(r)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan advances to the next line. It returns false at end of input or on a
// read error; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	raw, err := s.r.ReadString('\n')
	if err != nil && err != io.EOF {
		s.err = err
		return false
	}
	if raw == "" {
		// Clean EOF with no pending bytes.
		return false
	}

	line, terminator := splitTerminator(raw)
	if s.normalizeEOL && terminator != "" {
		terminator = "\n"
	}
	if s.nfc {
		line = norm.NFC.String(line)
	}
	s.line = line
	s.terminator = terminator
	return true
}

// Line returns the current line content, terminator stripped.
func (s *Scanner) Line() string { return s.line }

// Terminator returns the current line's exact terminator bytes. It is ""
// for a final line with no terminator.
func (s *Scanner) Terminator() string { return s.terminator }

// Err returns the first read error, or nil on clean end of input.
func (s *Scanner) Err() error { return s.err }

func splitTerminator(raw string) (line, terminator string) {
	if strings.HasSuffix(raw, "\r\n") {
		return raw[:len(raw)-2], "\r\n"
	}
	if strings.HasSuffix(raw, "\n") {
		return raw[:len(raw)-1], "\n"
	}
	return raw, ""
}
