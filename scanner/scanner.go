// Package scanner provides string-boundary-aware scanning for the dopy
// preprocessor. It encapsulates the tracking of single-quoted, double-quoted
// and triple-quoted string literals, escape sequences and # comments, so the
// preprocessor never mistakes a do/end inside string content or a comment for
// a block marker.
package scanner

import "strings"

// CodeScanner iterates byte-by-byte over source text, tracking string
// literal boundaries ('...', "...", '''...''', """...""") and escape
// sequences. Callers check InString() instead of maintaining their own
// inDouble/inSingle/escaped flags.
//
// InString() returns true for the entire string span including both
// opening and closing delimiters.
//
// The scanner can be carried across physical lines with Feed/Newline, which
// is how a triple-quoted literal left open at the end of one line is
// remembered on the next.
type CodeScanner struct {
	src     string
	pos     int
	quote   byte // quote byte of the open literal, 0 in code
	triple  bool
	delim   int  // delimiter bytes still to consume
	closeQ  bool // the delimiter being consumed closes the literal
	escaped bool
	comment bool
	closing bool // set when the last byte closed a literal
}

// New creates a CodeScanner for the given source text.
// Call Next() to advance to the first byte.
func New(src string) *CodeScanner {
	return &CodeScanner{src: src, pos: -1}
}

// Next advances to the next byte, updating string/escape/comment state.
// Returns the byte and true, or (0, false) at end of input.
func (s *CodeScanner) Next() (byte, bool) {
	s.closing = false
	s.pos++
	if s.pos >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.pos]

	if s.delim > 0 {
		s.delim--
		if s.delim == 0 && s.closeQ {
			s.quote, s.triple, s.closeQ = 0, false, false
			s.closing = true
		}
		return ch, true
	}
	if s.escaped {
		s.escaped = false
		return ch, true
	}
	if ch == '\n' {
		s.breakLine()
		return ch, true
	}
	if s.comment {
		return ch, true
	}

	if s.quote != 0 {
		switch {
		case ch == '\\':
			s.escaped = true
		case ch == s.quote && !s.triple:
			s.quote = 0
			s.closing = true
		case ch == s.quote && s.LookingAt(strings.Repeat(string(ch), 3)):
			s.delim = 2
			s.closeQ = true
		}
		return ch, true
	}

	switch ch {
	case '#':
		s.comment = true
	case '"', '\'':
		s.quote = ch
		if s.LookingAt(strings.Repeat(string(ch), 3)) {
			s.triple = true
			s.delim = 2
		}
	}
	return ch, true
}

// breakLine applies end-of-line rules: comments end, and a single-quoted
// literal that was never closed does not leak into the next line.
func (s *CodeScanner) breakLine() {
	s.comment = false
	if s.quote != 0 && !s.triple {
		s.quote = 0
	}
}

// Feed replaces the source with line and scans it to the end, keeping any
// open triple-quoted literal from previous lines. Call Newline after
// inspecting the end-of-line state.
func (s *CodeScanner) Feed(line string) {
	s.src = line
	s.pos = -1
	for _, ok := s.Next(); ok; _, ok = s.Next() {
	}
}

// Newline accounts for the line break between two fed lines.
func (s *CodeScanner) Newline() {
	if s.escaped {
		s.escaped = false
		return
	}
	s.breakLine()
}

// InString reports whether the current position is inside a string literal,
// including both opening and closing delimiters.
func (s *CodeScanner) InString() bool {
	return s.quote != 0 || s.closing
}

// InTriple reports the delimiter of an open triple-quoted literal
// (`'''` or `"""`), or "" when none is open.
func (s *CodeScanner) InTriple() string {
	if s.quote == 0 || !s.triple || s.closeQ {
		return ""
	}
	return strings.Repeat(string(s.quote), 3)
}

// InComment reports whether the current position is inside a # comment.
func (s *CodeScanner) InComment() bool { return s.comment }

// InCode reports whether the current position is outside all string literals
// and comments.
func (s *CodeScanner) InCode() bool { return !s.InString() && !s.comment }

// Pos returns the current byte offset (the position of the last byte
// returned by Next). Returns -1 before the first call to Next.
func (s *CodeScanner) Pos() int { return s.pos }

// LookingAt checks if src[pos:] starts with the given prefix.
func (s *CodeScanner) LookingAt(prefix string) bool {
	if s.pos < 0 {
		return strings.HasPrefix(s.src, prefix)
	}
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// IsOpenBracket reports whether ch is an opening bracket/paren/brace.
func IsOpenBracket(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloseBracket reports whether ch is a closing bracket/paren/brace.
func IsCloseBracket(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// FindAllTopLevel returns every offset in s where pred matches a byte at
// bracket depth 0, outside string literals and comments.
func FindAllTopLevel(s string, pred func(ch byte, pos int, src string) bool) []int {
	var positions []int
	depth := 0
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if !sc.InCode() {
			continue
		}
		if IsOpenBracket(ch) {
			depth++
		} else if IsCloseBracket(ch) {
			depth--
		}
		if depth == 0 && pred(ch, sc.Pos(), s) {
			positions = append(positions, sc.Pos())
		}
	}
	return positions
}

// CommentStart returns the offset of the # that starts a comment in s, or -1.
func CommentStart(s string) int {
	sc := New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if ch == '#' && sc.InComment() {
			return sc.Pos()
		}
	}
	return -1
}

// IsInsideString reports whether byte offset pos in line falls inside a
// string literal by counting the unescaped quotes before it: an odd number
// of either ' or " means inside. The two quote kinds are counted
// independently and comments are not recognized, so an apostrophe inside a
// double-quoted string or a comment counts too. CodeScanner tracks literals
// exactly and is what block detection uses.
func IsInsideString(line string, pos int) bool {
	if pos <= 0 {
		return false
	}
	if pos > len(line) {
		pos = len(line)
	}
	prefix := line[:pos]
	return CountUnescaped(prefix, '\'')%2 == 1 || CountUnescaped(prefix, '"')%2 == 1
}

// CountUnescaped counts occurrences of quote in s that are not preceded by a
// backslash escape. An escape skips the following byte without examining it.
func CountUnescaped(s string, quote byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == quote {
			n++
		}
	}
	return n
}
