package project

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rubiojr/dopy/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (slash-separated relative paths) under a fresh
// temporary directory and returns it.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

var sampleProject = map[string]string{
	"main.dopy": "import shapes\nfrom util.text import shout  # helpers\nimport os, json as j\nfrom . import helpers\n" +
		"s = \"\"\"\nimport ghost\n\"\"\"\nprint(shout(shapes.area(2)))\n",
	"shapes/__init__.dopy": "from .circle import area\n",
	"shapes/circle.dopy":   "import math\ndef area(r) do\n    return math.pi * r * r\nend\n",
	"util/text.dopy":       "def shout(x) do return str(x).upper() end\n",
	"helpers.dopy":         "x = 1\n",
	"ghost.dopy":           "x = 2\n",
}

func TestCollectImports(t *testing.T) {
	dir := writeTree(t, sampleProject)

	files, err := CollectImports(dir, filepath.Join(dir, "main.dopy"))
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{
		"main.dopy",
		"shapes/__init__.dopy",
		"util/text.dopy",
		"helpers.dopy",
		"shapes/circle.dopy",
	}, rel)
}

func TestCollectImports_MissingMain(t *testing.T) {
	dir := t.TempDir()
	_, err := CollectImports(dir, filepath.Join(dir, "nope.dopy"))

	var fileErr *preprocess.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, preprocess.OpRead, fileErr.Op)
}

func TestParseImports(t *testing.T) {
	refs := parseImports("import a.b as c, d\nfrom ..pkg import (x, y)\nfrom m import *\nfromage = 1\n")
	assert.Equal(t, []importRef{
		{module: "a.b"},
		{module: "d"},
		{module: "pkg", level: 2, names: []string{"x", "y"}},
		{module: "m"},
	}, refs)
}

func TestFindSources(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.dopy":             "",
		"b.py":               "",
		"pkg/c.dopy":         "",
		"venv/lib/d.dopy":    "",
		"pkg/.git/objs.dopy": "",
	})
	skip := func(name string) bool { return name == "venv" || name == ".git" }

	files, err := FindSources(dir, skip)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.dopy"),
		filepath.Join(dir, "pkg", "c.dopy"),
	}, files)

	_, err = FindSources(filepath.Join(dir, "missing"), nil)
	var fileErr *preprocess.FileError
	assert.True(t, errors.As(err, &fileErr))
}

func TestBuild(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"good.dopy": "def f() do\n    return 1\nend\n",
		"bad.dopy":  "if x do\n    pass\nend\nend\n",
		"warn.dopy": "if x\ndo\npass\nend\n",
	})
	files := []string{
		filepath.Join(dir, "good.dopy"),
		filepath.Join(dir, "bad.dopy"),
		filepath.Join(dir, "missing.dopy"),
		filepath.Join(dir, "warn.dopy"),
	}

	b := &Builder{Jobs: 2}
	outs, err := b.Build(context.Background(), files, SiblingTarget)
	require.Error(t, err)

	var blockErr *preprocess.UnmatchedBlockError
	assert.True(t, errors.As(err, &blockErr))
	assert.Equal(t, 4, blockErr.Line)
	assert.Contains(t, err.Error(), "bad.dopy:4: unmatched end block")

	var fileErr *preprocess.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, files[2], fileErr.Path)

	data, err := os.ReadFile(filepath.Join(dir, "good.py"))
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    return 1\n", string(data))
	assert.Equal(t, filepath.Join(dir, "good.py"), outs[0].Target)
	assert.Empty(t, outs[1].Target)
	assert.Len(t, outs[3].Warnings, 1)

	_, err = os.Stat(filepath.Join(dir, "bad.py"))
	assert.True(t, os.IsNotExist(err), "no output for a structural error")
}

func TestBuild_Mirror(t *testing.T) {
	dir := writeTree(t, sampleProject)
	out := t.TempDir()
	files := []string{filepath.Join(dir, "main.dopy"), filepath.Join(dir, "shapes", "circle.dopy")}

	_, err := (&Builder{}).Build(context.Background(), files, MirrorTarget(dir, out))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "main.py"))
	assert.FileExists(t, filepath.Join(out, "shapes", "circle.py"))
}

func TestBuild_Canceled(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.dopy": "x = 1\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Builder{}).Build(ctx, []string{filepath.Join(dir, "a.dopy")}, SiblingTarget)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"ok.dopy":  "if x do\n    pass\nend\n",
		"bad.dopy": "if x do\n",
	})
	results := Check(context.Background(), []string{
		filepath.Join(dir, "ok.dopy"),
		filepath.Join(dir, "bad.dopy"),
		filepath.Join(dir, "missing.dopy"),
	}, 4)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)

	assert.False(t, results[1].OK)
	assert.Equal(t, 1, results[1].Line)
	assert.Equal(t, "unmatched do block", results[1].Kind)

	assert.False(t, results[2].OK)
	assert.Contains(t, results[2].Message, "could not read file")
}

func TestCommonDir(t *testing.T) {
	root := filepath.FromSlash("/p")
	assert.Equal(t, root, CommonDir([]string{
		filepath.FromSlash("/p/main.dopy"),
		filepath.FromSlash("/p/a/b.dopy"),
	}))
	assert.Equal(t, root, CommonDir([]string{
		filepath.FromSlash("/p/a/main.dopy"),
		filepath.FromSlash("/p/b.dopy"),
	}))
	assert.Equal(t, "", CommonDir(nil))
}

func TestRunner(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	dir := writeTree(t, sampleProject)
	main := filepath.Join(dir, "main.dopy")

	// cat stands in for the interpreter: it prints the transpiled script.
	var stdout bytes.Buffer
	r := &Runner{Python: "cat", Stdout: &stdout}
	require.NoError(t, r.Run(context.Background(), main, false))
	assert.Contains(t, stdout.String(), "import shapes\n")
	_, err := os.Stat(filepath.Join(dir, "main.py"))
	assert.True(t, os.IsNotExist(err), "temporary run leaves no files behind")

	stdout.Reset()
	require.NoError(t, r.Run(context.Background(), main, true))
	circle, err := os.ReadFile(filepath.Join(dir, "shapes", "circle.py"))
	require.NoError(t, err)
	assert.Equal(t, "import math\ndef area(r):\n    return math.pi * r * r\n", string(circle))
	assert.FileExists(t, filepath.Join(dir, "util", "text.py"))
	assert.NoFileExists(t, filepath.Join(dir, "ghost.py"))
}

func TestRunner_ExitCode(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	dir := writeTree(t, map[string]string{"main.dopy": "x = 1\n"})

	r := &Runner{Python: "false"}
	err := r.Run(context.Background(), filepath.Join(dir, "main.dopy"), false)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode())
}

func TestExamples(t *testing.T) {
	root := filepath.Join("..", "examples")
	files, err := FindSources(root, nil)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, r := range Check(context.Background(), files, 4) {
		assert.True(t, r.OK, "%s: %s", r.File, r.Message)
	}

	dir := filepath.Join(root, "project")
	imports, err := CollectImports(dir, filepath.Join(dir, "main.dopy"))
	require.NoError(t, err)
	var rel []string
	for _, f := range imports {
		abs, err := filepath.Abs(dir)
		require.NoError(t, err)
		r, err := filepath.Rel(abs, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{
		"main.dopy",
		"shapes/__init__.dopy",
		"shapes/square.dopy",
		"shapes/circle.dopy",
	}, rel)
}
