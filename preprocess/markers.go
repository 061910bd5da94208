package preprocess

import (
	"strings"

	"github.com/rubiojr/dopy/scanner"
)

// MarkerKind tells an opener from a closer.
type MarkerKind int

const (
	Opener MarkerKind = iota + 1
	Closer
)

func (k MarkerKind) String() string {
	switch k {
	case Opener:
		return "open"
	case Closer:
		return "close"
	}
	return "unknown"
}

// BlockMarker is one do or end keyword that takes part in block structure.
type BlockMarker struct {
	Line   int // 1-based physical line
	Offset int // byte offset in the logical line's Content
	Kind   MarkerKind
	Text   string // Content of the enclosing logical line
}

type tokenKind int

const (
	tokText tokenKind = iota
	tokOpen
	tokClose
	tokComment
)

// token is one piece of a logical line split at its block markers. A
// trailing comment becomes its own token; gap holds the whitespace that
// separated it from the code.
type token struct {
	kind tokenKind
	text string
	gap  string
}

// lexedLine is a logical line split into a tagged token sequence. Lines
// without markers carry no tokens and are emitted verbatim.
type lexedLine struct {
	LogicalLine
	tokens  []token
	markers []BlockMarker
}

// lexer finds block markers. Bracket depth is carried across logical lines
// because Python continues bracketed expressions implicitly; a do or end
// inside an open bracket is never a marker.
type lexer struct {
	depth int
}

// Markers returns every block marker in src in source order.
func Markers(src string) []BlockMarker {
	var out []BlockMarker
	for _, l := range lexLines(Normalize(src)) {
		out = append(out, l.markers...)
	}
	return out
}

func lexLines(lines []LogicalLine) []lexedLine {
	lx := &lexer{}
	out := make([]lexedLine, len(lines))
	for i, l := range lines {
		out[i] = lx.lex(l)
	}
	return out
}

func (lx *lexer) lex(l LogicalLine) lexedLine {
	ll := lexedLine{LogicalLine: l}
	if l.Blank() {
		return ll
	}

	src := l.Content
	var toks []token
	last := 0
	text := func(end int) {
		if strings.TrimSpace(src[last:end]) != "" {
			toks = append(toks, token{kind: tokText, text: src[last:end]})
		}
	}

	open := 0 // openers on this line not yet closed on it
	sc := scanner.New(src)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		pos := sc.Pos()
		if sc.InComment() {
			text(pos)
			code := strings.TrimRight(src[:pos], " \t")
			toks = append(toks, token{kind: tokComment, text: src[pos:], gap: src[len(code):pos]})
			last = len(src)
			break
		}
		if !sc.InCode() {
			continue
		}
		if scanner.IsOpenBracket(ch) {
			lx.depth++
			continue
		}
		if scanner.IsCloseBracket(ch) {
			if lx.depth > 0 {
				lx.depth--
			}
			continue
		}
		if lx.depth > 0 {
			continue
		}

		kind, word := markerAt(src, pos)
		if kind == 0 {
			continue
		}
		// Mid-statement, end only closes a block opened earlier on the line.
		if kind == Closer && open == 0 && strings.TrimSpace(src[last:pos]) != "" {
			continue
		}
		text(pos)
		tk := tokOpen
		if kind == Closer {
			tk = tokClose
			if open > 0 {
				open--
			}
		} else {
			open++
		}
		toks = append(toks, token{kind: tk, text: word})
		ll.markers = append(ll.markers, BlockMarker{
			Line:   l.Line + strings.Count(src[:pos], "\n"),
			Offset: pos,
			Kind:   kind,
			Text:   src,
		})
		last = pos + len(word)
	}
	if last < len(src) {
		text(len(src))
	}

	if len(ll.markers) > 0 {
		ll.tokens = toks
	}
	return ll
}

// markerAt reports whether a do/end keyword used as a block marker starts
// at src[pos]. Attribute access, calls, subscripts, keyword arguments,
// assignment targets and annotations named do/end are not markers. The
// caller further restricts closers to the start of a statement or to
// blocks opened on the same line.
func markerAt(src string, pos int) (MarkerKind, string) {
	if pos > 0 && (isIdentByte(src[pos-1]) || src[pos-1] == '.') {
		return 0, ""
	}
	for _, kw := range []struct {
		kind MarkerKind
		word string
	}{{Opener, OpenKeyword}, {Closer, CloseKeyword}} {
		if !strings.HasPrefix(src[pos:], kw.word) {
			continue
		}
		end := pos + len(kw.word)
		if end < len(src) && isIdentByte(src[end]) {
			continue
		}
		if usedAsName(src[:pos], src[end:]) {
			return 0, ""
		}
		return kw.kind, kw.word
	}
	return 0, ""
}

func usedAsName(before, after string) bool {
	if prev := strings.TrimRight(before, " \t"); strings.HasSuffix(prev, ",") {
		return true
	}
	rest := strings.TrimLeft(after, " \t")
	if rest == "" {
		return false
	}
	switch rest[0] {
	case '(', '[', '.', ',', ':', ')', ']', '}':
		return true
	case '=':
		return !strings.HasPrefix(rest, "==")
	}
	for _, op := range augmentedOps {
		if strings.HasPrefix(rest, op) {
			return true
		}
	}
	return false
}

var augmentedOps = []string{
	"+=", "-=", "*=", "/=", "//=", "%=", "**=", "@=",
	"&=", "|=", "^=", ">>=", "<<=",
}

func isIdentByte(ch byte) bool {
	return ch == '_' || ch >= 0x80 ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}
