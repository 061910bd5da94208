package project

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner transpiles a script with its imports and executes it.
type Runner struct {
	// Python is the interpreter command.
	Python string
	Builder
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run transpiles main and every .dopy module it imports, then runs the
// transpiled main with args. With keep the .py files are written next to
// their sources and left there; otherwise they are mirrored into a
// temporary directory that is removed afterwards. A non-zero exit of the
// interpreter is returned as an *exec.ExitError.
func (r *Runner) Run(ctx context.Context, main string, keep bool, args ...string) error {
	absMain, err := filepath.Abs(main)
	if err != nil {
		return fmt.Errorf("resolving path %s: %w", main, err)
	}
	files, err := CollectImports(filepath.Dir(absMain), absMain)
	if err != nil {
		return err
	}

	dest := SiblingTarget
	if !keep {
		tmpDir, err := os.MkdirTemp("", "dopy-*")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)
		dest = MirrorTarget(CommonDir(files), tmpDir)
	}

	if _, err := r.Build(ctx, files, dest); err != nil {
		return err
	}

	script := dest(absMain)
	r.logger().Debug("running", "script", script, "python", r.python())
	cmd := exec.CommandContext(ctx, r.python(), append([]string{script}, args...)...)
	cmd.Dir = filepath.Dir(absMain)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if r.Stdin != nil {
		cmd.Stdin = r.Stdin
	}
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", main, err)
	}
	return nil
}

func (r *Runner) python() string {
	if r.Python == "" {
		return "python3"
	}
	return r.Python
}
