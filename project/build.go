package project

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rubiojr/dopy/preprocess"
	"github.com/sourcegraph/conc/pool"
)

// FindSources walks dir and returns every .dopy file in lexical order,
// skipping directories for which skip returns true.
func FindSources(dir string, skip func(name string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skip != nil && skip(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), SourceExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &preprocess.FileError{Path: dir, Op: preprocess.OpRead, Err: err}
	}
	return files, nil
}

// Output describes one transpiled file.
type Output struct {
	Source   string
	Target   string
	Warnings []preprocess.Warning
}

// Builder transpiles files in parallel. Every file is independent, so a
// failure in one does not stop the others; all failures are returned joined.
type Builder struct {
	// Jobs bounds the number of files processed at once. Values below one
	// mean one.
	Jobs int
	// Logger receives per-file progress and warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Build transpiles each file to dest(file), creating parent directories as
// needed. The returned slice is indexed like files; entries for failed
// files are left zero.
func (b *Builder) Build(ctx context.Context, files []string, dest func(string) string) ([]Output, error) {
	jobs := b.Jobs
	if jobs < 1 {
		jobs = 1
	}

	outs := make([]Output, len(files))
	p := pool.New().WithMaxGoroutines(jobs).WithContext(ctx)
	for i, src := range files {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := b.transpile(src, dest(src))
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	return outs, p.Wait()
}

func (b *Builder) transpile(src, dst string) (Output, error) {
	log := b.logger().With("src", src)

	data, err := os.ReadFile(src)
	if err != nil {
		return Output{}, &preprocess.FileError{Path: src, Op: preprocess.OpRead, Err: err}
	}
	res, err := preprocess.Transform(string(data))
	if err != nil {
		return Output{}, fmt.Errorf("%s:%w", src, err)
	}
	for _, w := range res.Warnings {
		log.Warn(w.Message, "line", w.Line)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Output{}, &preprocess.FileError{Path: dst, Op: preprocess.OpWrite, Err: err}
	}
	if err := preprocess.WriteFile(dst, res.Output); err != nil {
		return Output{}, err
	}
	log.Debug("transpiled", "dst", dst, "lines", res.Lines, "depth", res.MaxDepth)
	return Output{Source: src, Target: dst, Warnings: res.Warnings}, nil
}
