package preprocess

import (
	"strings"

	"github.com/rubiojr/dopy/scanner"
)

// LogicalLine is one statement's worth of source: a physical line, several
// physical lines joined by a trailing backslash, or a run of physical lines
// held together by an open triple-quoted string.
type LogicalLine struct {
	// Line and EndLine are the 1-based physical lines the logical line spans.
	Line    int
	EndLine int
	// Indent is the original leading whitespace. It carries no meaning in
	// the dialect and is only used for diagnostics.
	Indent string
	// Content is the text with leading and trailing whitespace removed.
	// Physical lines inside a multi-line string keep their newlines and
	// their original whitespace.
	Content string
}

// Blank reports whether the line has no content.
func (l LogicalLine) Blank() bool { return l.Content == "" }

// Comment reports whether the line is a full-line comment.
func (l LogicalLine) Comment() bool { return strings.HasPrefix(l.Content, "#") }

func newLogicalLine(text string, start, end int) LogicalLine {
	content := strings.TrimSpace(text)
	indent := ""
	if content != "" {
		indent = text[:strings.Index(text, content)]
	}
	return LogicalLine{Line: start, EndLine: end, Indent: indent, Content: content}
}

// Normalize splits src into logical lines. Blank lines are kept as empty
// logical lines so the rewriter can reproduce them. An unterminated
// triple-quoted string swallows the rest of the input; that is not an error.
func Normalize(src string) []LogicalLine {
	phys := strings.Split(src, "\n")
	lines := make([]LogicalLine, 0, len(phys))

	sc := scanner.New("")
	var buf strings.Builder
	start := 0
	pending := false
	sep := ""

	for i, raw := range phys {
		raw = strings.TrimSuffix(raw, "\r")
		if pending {
			buf.WriteString(sep)
		} else {
			buf.Reset()
			start = i + 1
		}

		sc.Feed(raw)
		switch {
		case strings.HasSuffix(raw, `\`) && !sc.InComment():
			buf.WriteString(raw[:len(raw)-1])
			pending, sep = true, ""
		case sc.InTriple() != "":
			buf.WriteString(raw)
			pending, sep = true, "\n"
		default:
			buf.WriteString(raw)
			pending = false
			lines = append(lines, newLogicalLine(buf.String(), start, i+1))
		}
		sc.Newline()
	}
	if pending {
		lines = append(lines, newLogicalLine(buf.String(), start, len(phys)))
	}
	return lines
}
