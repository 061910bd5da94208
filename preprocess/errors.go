package preprocess

import "fmt"

// BlockErrorKind distinguishes the two ways do/end blocks can fail to match.
type BlockErrorKind int

const (
	// UnmatchedCloser is an end with no open block.
	UnmatchedCloser BlockErrorKind = iota + 1
	// UnclosedOpener is a do still open at end of input.
	UnclosedOpener
)

func (k BlockErrorKind) String() string {
	switch k {
	case UnmatchedCloser:
		return "unmatched " + CloseKeyword + " block"
	case UnclosedOpener:
		return "unmatched " + OpenKeyword + " block"
	}
	return fmt.Sprintf("BlockErrorKind(%d)", int(k))
}

// UnmatchedBlockError reports a structural do/end violation. Line is the
// 1-based physical line of the offending marker and Snippet the trimmed text
// of its logical line.
type UnmatchedBlockError struct {
	Kind    BlockErrorKind
	Line    int
	Snippet string
}

func (e *UnmatchedBlockError) Error() string {
	return fmt.Sprintf("%d: %s: %s", e.Line, e.Kind, e.Snippet)
}

// File operations reported by FileError.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// FileError wraps a failure to read or write a source file.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("could not %s file %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
