package preprocess

import (
	"fmt"
	"os"

	"github.com/google/renameio"
)

// ProcessFile reads input, rewrites it and, when output is not empty,
// atomically replaces output with the result. The rewritten source is
// returned either way. Read and write failures are reported as *FileError;
// structural errors are prefixed with the input path.
func ProcessFile(input, output string) (string, error) {
	res, err := TransformFile(input, output)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// TransformFile is ProcessFile returning the full Result.
func TransformFile(input, output string) (*Result, error) {
	src, err := os.ReadFile(input)
	if err != nil {
		return nil, &FileError{Path: input, Op: OpRead, Err: err}
	}

	res, err := Transform(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", input, err)
	}

	if output != "" {
		if err := WriteFile(output, res.Output); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// WriteFile atomically replaces path with text.
func WriteFile(path, text string) error {
	if err := renameio.WriteFile(path, []byte(text), 0644); err != nil {
		return &FileError{Path: path, Op: OpWrite, Err: err}
	}
	return nil
}
