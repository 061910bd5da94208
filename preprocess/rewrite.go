package preprocess

import (
	"fmt"
	"strings"
)

// Warning flags a construct that was accepted but may not mean what its
// author intended.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%d: %s", w.Line, w.Message)
}

// rewriter turns validated lines into indented Python. All of its state
// lives for a single Transform call.
type rewriter struct {
	out      []string
	depth    int
	maxDepth int
	warnings []Warning

	// line and original indent width of the last line that opened and
	// closed a block on the same line, 0 when the next line is unaffected
	inlineLine   int
	inlineIndent int
}

func (r *rewriter) rewrite(lines []lexedLine) error {
	for _, l := range lines {
		if l.Blank() {
			r.out = append(r.out, "")
			continue
		}
		if !l.Comment() {
			r.checkMixed(l)
		}
		if len(l.tokens) == 0 {
			r.emit(l.Content)
			continue
		}
		if err := r.rewriteMarked(l); err != nil {
			return err
		}
	}
	return nil
}

// rewriteMarked splits a line at its markers. Each opener turns the text
// before it into a header; each closer flushes the text before it as a
// statement. The emitted lines are indented by the depth in effect when
// they are reached, so a block opened and closed on the same line gets its
// own indented body and leaves the depth where it was.
func (r *rewriter) rewriteMarked(l lexedLine) error {
	first := len(r.out)
	colon := -1 // output line that took the colon of a bare opener
	local, peak := 0, 0
	pending := ""
	flush := func() {
		if pending != "" {
			r.emit(pending)
			pending = ""
		}
	}

	for _, tok := range l.tokens {
		switch tok.kind {
		case tokText:
			pending = strings.TrimSpace(tok.text)
		case tokOpen:
			if pending == "" {
				colon = r.attachColon(l.Line)
			} else {
				r.emit(pending + ":")
				pending = ""
			}
			r.depth++
			if r.depth > r.maxDepth {
				r.maxDepth = r.depth
			}
			local++
			if local > peak {
				peak = local
			}
		case tokClose:
			flush()
			if r.depth == 0 {
				return &UnmatchedBlockError{Kind: UnmatchedCloser, Line: l.Line, Snippet: l.Content}
			}
			r.depth--
			local--
		case tokComment:
			flush()
			switch {
			case len(r.out) > first:
				r.out[len(r.out)-1] += tok.gap + tok.text
			case colon >= 0:
				r.out[colon] += tok.gap + tok.text
			}
		}
	}
	flush()

	if peak > 0 && local <= 0 {
		r.inlineLine = l.Line
		r.inlineIndent = indentWidth(l.Indent)
	}
	return nil
}

// attachColon handles a do with no header text before it on its line by
// terminating the previous non-blank output line instead. It returns the
// index of the line that received the colon.
func (r *rewriter) attachColon(line int) int {
	for i := len(r.out) - 1; i >= 0; i-- {
		if strings.TrimSpace(r.out[i]) != "" {
			r.out[i] += ":"
			r.warn(line, "%s without a header on its line, attached to the previous line", OpenKeyword)
			return i
		}
	}
	r.emit(":")
	r.warn(line, "%s without a header", OpenKeyword)
	return len(r.out) - 1
}

// checkMixed flags a line indented deeper than an inline block closed on
// the line before it. The line stays outside the block.
func (r *rewriter) checkMixed(l lexedLine) {
	if r.inlineLine == 0 {
		return
	}
	if indentWidth(l.Indent) > r.inlineIndent {
		r.warn(l.Line, "indented deeper than the inline block closed on line %d, kept outside it", r.inlineLine)
	}
	r.inlineLine = 0
}

func (r *rewriter) emit(text string) {
	r.out = append(r.out, strings.Repeat(" ", IndentWidth*r.depth)+text)
}

func (r *rewriter) warn(line int, format string, args ...any) {
	r.warnings = append(r.warnings, Warning{Line: line, Message: fmt.Sprintf(format, args...)})
}

// indentWidth measures leading whitespace with tabs advancing to the next
// multiple of eight.
func indentWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 8 - w%8
		} else {
			w++
		}
	}
	return w
}
