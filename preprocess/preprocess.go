// Package preprocess rewrites dopy source, a dialect of Python whose blocks
// are opened by a trailing do and closed by a standalone end, into Python
// with colon-terminated headers and four-space indentation.
//
// The pipeline is Normalize (logical lines), a marker lexer, validation of
// do/end nesting, and the indentation rewriter. Validation runs to
// completion before any output is built, so a structural error never yields
// partial output. Every entry point keeps its state local to the call and
// is safe for concurrent use.
package preprocess

import "strings"

const (
	// OpenKeyword ends a block header.
	OpenKeyword = "do"
	// CloseKeyword ends a block.
	CloseKeyword = "end"
	// IndentWidth is the number of spaces per nesting level in the output.
	IndentWidth = 4
)

// Result is the outcome of a successful Transform.
type Result struct {
	Output   string
	Warnings []Warning
	// Lines is the number of logical lines in the source.
	Lines int
	// MaxDepth is the deepest nesting reached.
	MaxDepth int
}

// Preprocess rewrites src into indented Python. It returns an
// *UnmatchedBlockError when do/end blocks do not nest.
func Preprocess(src string) (string, error) {
	res, err := Transform(src)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Transform is Preprocess with the warnings and statistics gathered on the
// way.
func Transform(src string) (*Result, error) {
	lines := lexLines(Normalize(src))
	if err := validate(lines); err != nil {
		return nil, err
	}

	r := &rewriter{}
	if err := r.rewrite(lines); err != nil {
		return nil, err
	}
	return &Result{
		Output:   strings.Join(r.out, "\n"),
		Warnings: r.warnings,
		Lines:    len(lines),
		MaxDepth: r.maxDepth,
	}, nil
}

// Validate checks do/end nesting without producing output.
func Validate(src string) error {
	return validate(lexLines(Normalize(src)))
}
