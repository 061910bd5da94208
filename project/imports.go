// Package project handles the multi-file side of dopy: discovering the
// .dopy modules a script imports, transpiling many files in parallel and
// running the result with a Python interpreter. Each file goes through
// preprocess on its own; nothing here changes how a file is rewritten.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rubiojr/dopy/preprocess"
	"github.com/rubiojr/dopy/scanner"
)

const (
	// SourceExt is the extension of dopy modules.
	SourceExt = ".dopy"
	// TargetExt is the extension of transpiled modules.
	TargetExt = ".py"
)

// importRef is one module reference found in an import statement.
type importRef struct {
	module string   // dotted path without leading dots
	level  int      // number of leading dots, 0 for absolute imports
	names  []string // names after "from ... import"
}

// CollectImports returns main followed by every .dopy module it imports,
// directly or transitively, in discovery order. Absolute imports resolve
// against root, relative ones against the importing file's directory.
// Imports that do not resolve to a .dopy file are ordinary Python modules
// and are skipped.
func CollectImports(root, main string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", root, err)
	}
	main, err = filepath.Abs(main)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", main, err)
	}

	seen := map[string]bool{main: true}
	order := []string{main}
	for i := 0; i < len(order); i++ {
		file := order[i]
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, &preprocess.FileError{Path: file, Op: preprocess.OpRead, Err: err}
		}
		for _, ref := range parseImports(string(src)) {
			for _, dep := range resolveImport(root, file, ref) {
				if !seen[dep] {
					seen[dep] = true
					order = append(order, dep)
				}
			}
		}
	}
	return order, nil
}

// parseImports extracts import statements from logical lines. Statements
// inside multi-line strings never start a logical line, so they are ignored.
func parseImports(src string) []importRef {
	var refs []importRef
	for _, l := range preprocess.Normalize(src) {
		stmt := l.Content
		if i := scanner.CommentStart(stmt); i >= 0 {
			stmt = strings.TrimSpace(stmt[:i])
		}
		switch {
		case strings.HasPrefix(stmt, "import "):
			for _, part := range splitTopLevel(strings.TrimPrefix(stmt, "import ")) {
				if fields := strings.Fields(part); len(fields) > 0 {
					refs = append(refs, newImportRef(fields[0], nil))
				}
			}
		case strings.HasPrefix(stmt, "from "):
			rest := strings.TrimPrefix(stmt, "from ")
			mod, names, ok := strings.Cut(rest, " import ")
			if !ok {
				continue
			}
			names = strings.Trim(strings.TrimSpace(names), "()")
			var list []string
			for _, part := range splitTopLevel(names) {
				if fields := strings.Fields(part); len(fields) > 0 && fields[0] != "*" {
					list = append(list, fields[0])
				}
			}
			refs = append(refs, newImportRef(strings.TrimSpace(mod), list))
		}
	}
	return refs
}

func newImportRef(dotted string, names []string) importRef {
	module := strings.TrimLeft(dotted, ".")
	return importRef{module: module, level: len(dotted) - len(module), names: names}
}

func splitTopLevel(s string) []string {
	commas := scanner.FindAllTopLevel(s, func(ch byte, pos int, src string) bool { return ch == ',' })
	var parts []string
	last := 0
	for _, c := range commas {
		parts = append(parts, s[last:c])
		last = c + 1
	}
	return append(parts, s[last:])
}

// resolveImport maps a reference to existing .dopy files: the module itself
// and, for "from pkg import name", any name that is a submodule of pkg.
func resolveImport(root, file string, ref importRef) []string {
	base := root
	if ref.level > 0 {
		base = filepath.Dir(file)
		for i := 1; i < ref.level; i++ {
			base = filepath.Dir(base)
		}
	}

	var found []string
	dir := base
	if ref.module != "" {
		dir = filepath.Join(base, filepath.FromSlash(strings.ReplaceAll(ref.module, ".", "/")))
		if p := moduleFile(dir); p != "" {
			found = append(found, p)
		}
	}
	for _, name := range ref.names {
		if p := moduleFile(filepath.Join(dir, name)); p != "" {
			found = append(found, p)
		}
	}
	return found
}

// moduleFile returns path.dopy or path/__init__.dopy when either exists.
func moduleFile(path string) string {
	for _, candidate := range []string{
		path + SourceExt,
		filepath.Join(path, "__init__"+SourceExt),
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// SiblingTarget returns the .py path next to a .dopy source.
func SiblingTarget(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + TargetExt
}

// MirrorTarget returns a destination function that maps sources under root
// to .py files at the same relative path under dir.
func MirrorTarget(root, dir string) func(string) string {
	return func(src string) string {
		rel, err := filepath.Rel(root, src)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(src)
		}
		return SiblingTarget(filepath.Join(dir, rel))
	}
}

// CommonDir returns the deepest directory containing every path.
func CommonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	common := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		dir := filepath.Dir(p)
		for !within(common, dir) {
			parent := filepath.Dir(common)
			if parent == common {
				break
			}
			common = parent
		}
	}
	return common
}

func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
