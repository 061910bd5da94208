package project

import (
	"context"
	"errors"
	"os"

	"github.com/rubiojr/dopy/preprocess"
	"github.com/sourcegraph/conc/pool"
)

// CheckResult is the validation outcome for one file.
type CheckResult struct {
	File    string `json:"file"`
	OK      bool   `json:"ok"`
	Line    int    `json:"line,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// Check validates do/end nesting of every file without writing anything.
// Results are indexed like files.
func Check(ctx context.Context, files []string, jobs int) []CheckResult {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]CheckResult, len(files))
	p := pool.New().WithMaxGoroutines(jobs)
	for i, file := range files {
		p.Go(func() {
			results[i] = checkFile(ctx, file)
		})
	}
	p.Wait()
	return results
}

func checkFile(ctx context.Context, file string) CheckResult {
	res := CheckResult{File: file}
	if err := ctx.Err(); err != nil {
		res.Err, res.Message = err, err.Error()
		return res
	}

	data, err := os.ReadFile(file)
	if err != nil {
		err = &preprocess.FileError{Path: file, Op: preprocess.OpRead, Err: err}
		res.Err, res.Message = err, err.Error()
		return res
	}
	if err := preprocess.Validate(string(data)); err != nil {
		res.Err, res.Message = err, err.Error()
		var blockErr *preprocess.UnmatchedBlockError
		if errors.As(err, &blockErr) {
			res.Line = blockErr.Line
			res.Kind = blockErr.Kind.String()
		}
		return res
	}
	res.OK = true
	return res
}
