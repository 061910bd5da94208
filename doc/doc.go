// Package doc extracts documentation from dopy source files.
//
// It works on the raw .dopy source, before rewriting. The extraction rule
// follows the comment convention: consecutive # lines immediately before a
// def or class header (no blank line gap, decorators allowed) are attached
// as the doc comment for that declaration. A declaration without one falls
// back to the docstring that opens its block.
package doc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rubiojr/dopy/preprocess"
	"github.com/rubiojr/dopy/scanner"
)

// FileDoc holds all extracted documentation for a single dopy file.
type FileDoc struct {
	Path    string
	Doc     string // file-level doc (first # block or module docstring)
	Funcs   []FuncDoc
	Classes []ClassDoc
}

// FuncDoc describes a documented function or method.
type FuncDoc struct {
	Name   string   // e.g. "area" or "Circle.area"
	Params []string // parameter declarations as written
	Doc    string
	Line   int // 1-based line number of the def
}

// ClassDoc describes a documented class.
type ClassDoc struct {
	Name  string
	Bases []string
	Doc   string
	Line  int // 1-based line number of the class keyword
}

// ExtractFile reads a dopy file and extracts all documentation.
func ExtractFile(path string) (*FileDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &preprocess.FileError{Path: path, Op: preprocess.OpRead, Err: err}
	}
	return Extract(string(data), path), nil
}

// ExtractDir reads all dopy files in a directory (non-recursive) and returns
// aggregated documentation. The entry file's doc becomes the top-level doc.
// Other files contribute their functions and classes.
func ExtractDir(dir, entryFile string) (*FileDoc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &preprocess.FileError{Path: dir, Op: preprocess.OpRead, Err: err}
	}

	result := &FileDoc{Path: dir}
	entryBase := ""
	if entryFile != "" {
		entryBase = filepath.Base(entryFile)
		if fd, err := ExtractFile(entryFile); err == nil {
			result.Doc = fd.Doc
			result.Funcs = append(result.Funcs, fd.Funcs...)
			result.Classes = append(result.Classes, fd.Classes...)
		}
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".dopy") || e.Name() == entryBase {
			continue
		}
		fd, err := ExtractFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		result.Funcs = append(result.Funcs, fd.Funcs...)
		result.Classes = append(result.Classes, fd.Classes...)
	}
	return result, nil
}

// Extract parses raw dopy source and returns structured documentation.
func Extract(src, path string) *FileDoc {
	fd := &FileDoc{Path: path}
	markers := preprocess.Markers(src)

	var (
		commentBlock []string
		seenCode     bool
		header       []string // def/class header spread over several lines
		headerLine   int
		headerDoc    string
		setDoc       func(string) // declaration still waiting for a docstring
		scopes       []string     // enclosing block names, "" for plain blocks
	)

	mi := 0
	for _, l := range preprocess.Normalize(src) {
		var lineMarkers []preprocess.BlockMarker
		for mi < len(markers) && markers[mi].Line <= l.EndLine {
			lineMarkers = append(lineMarkers, markers[mi])
			mi++
		}

		if l.Blank() {
			if len(commentBlock) > 0 && !seenCode {
				// First comment block before any code = file-level doc
				fd.Doc = strings.Join(commentBlock, "\n")
				seenCode = true
			}
			// Blank line breaks attachment
			commentBlock = nil
			continue
		}
		if l.Comment() {
			if !strings.HasPrefix(l.Content, "#!") {
				commentBlock = append(commentBlock, strings.TrimPrefix(l.Content[1:], " "))
			}
			continue
		}

		if setDoc != nil {
			if s, ok := docstring(l.Content); ok {
				setDoc(s)
			}
			setDoc = nil
		}
		if !seenCode {
			if len(commentBlock) > 0 {
				fd.Doc = strings.Join(commentBlock, "\n")
			} else if s, ok := docstring(l.Content); ok {
				fd.Doc = s
			}
			seenCode = true
		}

		// Decorators keep the pending comment block attached
		if strings.HasPrefix(l.Content, "@") && header == nil {
			continue
		}

		code := l.Content
		if i := scanner.CommentStart(code); i >= 0 {
			code = strings.TrimSpace(code[:i])
		}
		if header != nil && len(lineMarkers) == 0 && !unbalanced(strings.Join(header, " ")) {
			// Not a block header after all, e.g. a one-line class with a colon
			header = nil
		}
		if header == nil && isDecl(code) {
			headerLine = l.Line
			headerDoc = strings.Join(commentBlock, "\n")
		}
		commentBlock = nil

		if header != nil || isDecl(code) {
			if len(lineMarkers) == 0 {
				header = append(header, code)
				continue
			}
			if first := lineMarkers[0]; first.Kind == preprocess.Opener {
				header = append(header, strings.TrimSpace(l.Content[:first.Offset]))
				setDoc = declare(fd, scopes, strings.Join(header, " "), headerLine, headerDoc)
				scopes = append(scopes, declName(strings.Join(header, " ")))
				lineMarkers = lineMarkers[1:]
				if len(lineMarkers) > 0 {
					setDoc = nil
				}
			}
			header = nil
		}

		for _, m := range lineMarkers {
			if m.Kind == preprocess.Opener {
				scopes = append(scopes, "")
			} else if len(scopes) > 0 {
				scopes = scopes[:len(scopes)-1]
			}
		}
	}

	return fd
}

// declare records the def or class in header and returns a setter for its
// docstring. The setter never overrides a doc comment.
func declare(fd *FileDoc, scopes []string, header string, line int, doc string) func(string) {
	kind, name, args := parseDecl(header)
	if name == "" {
		return nil
	}
	var qual []string
	for _, s := range scopes {
		if s != "" {
			qual = append(qual, s)
		}
	}
	name = strings.Join(append(qual, name), ".")

	if kind == "class" {
		i := len(fd.Classes)
		fd.Classes = append(fd.Classes, ClassDoc{Name: name, Bases: args, Doc: doc, Line: line})
		return func(s string) {
			if fd.Classes[i].Doc == "" {
				fd.Classes[i].Doc = s
			}
		}
	}
	i := len(fd.Funcs)
	fd.Funcs = append(fd.Funcs, FuncDoc{Name: name, Params: args, Doc: doc, Line: line})
	return func(s string) {
		if fd.Funcs[i].Doc == "" {
			fd.Funcs[i].Doc = s
		}
	}
}

func isDecl(code string) bool {
	kind, _, _ := parseDecl(code)
	return kind != ""
}

func declName(header string) string {
	_, name, _ := parseDecl(header)
	return name
}

// parseDecl splits a def or class header into its kind, name and the items
// of its parenthesized list. Handles: def f(a, b) -> T, async def f(),
// def f[T](x: T), class C(Base), class C
func parseDecl(header string) (kind, name string, args []string) {
	rest := strings.TrimPrefix(header, "async ")
	switch {
	case strings.HasPrefix(rest, "def "):
		kind = "def"
	case strings.HasPrefix(rest, "class "):
		kind = "class"
	default:
		return "", "", nil
	}
	rest = strings.TrimSpace(rest[len(kind)+1:])

	i := 0
	for i < len(rest) && isIdentByte(rest[i]) {
		i++
	}
	return kind, rest[:i], params(rest[i:])
}

// params returns the top-level comma separated items of the first
// parenthesized group in s.
func params(s string) []string {
	depth, start := 0, -1
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if !sc.InCode() {
			continue
		}
		switch {
		case scanner.IsOpenBracket(ch):
			if depth == 0 && ch == '(' && start < 0 {
				start = sc.Pos() + 1
			}
			depth++
		case scanner.IsCloseBracket(ch):
			depth--
			if depth == 0 && start >= 0 {
				return splitParams(s[start:sc.Pos()])
			}
		}
	}
	return nil
}

func splitParams(s string) []string {
	var out []string
	last := 0
	commas := scanner.FindAllTopLevel(s, func(ch byte, pos int, src string) bool { return ch == ',' })
	for _, end := range append(commas, len(s)) {
		if p := strings.TrimSpace(s[last:end]); p != "" {
			out = append(out, p)
		}
		last = end + 1
	}
	return out
}

func unbalanced(s string) bool {
	depth := 0
	sc := scanner.New(s)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if !sc.InCode() {
			continue
		}
		if scanner.IsOpenBracket(ch) {
			depth++
		} else if scanner.IsCloseBracket(ch) {
			depth--
		}
	}
	return depth > 0
}

// docstring reports whether s is a lone string literal and returns its
// text with surrounding blank lines and per-line indentation removed.
func docstring(s string) (string, bool) {
	if len(s) > 0 && strings.IndexByte("rRuU", s[0]) >= 0 {
		s = s[1:]
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if !strings.HasPrefix(s, q) || len(s) < 2*len(q) {
			continue
		}
		body := s[len(q):]
		if strings.Index(body, q) != len(body)-len(q) {
			return "", false
		}
		var lines []string
		for _, line := range strings.Split(body[:len(body)-len(q)], "\n") {
			lines = append(lines, strings.TrimSpace(line))
		}
		return strings.Trim(strings.Join(lines, "\n"), "\n"), true
	}
	return "", false
}

func isIdentByte(ch byte) bool {
	return ch == '_' || ch >= 0x80 ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

// LookupSymbol finds a specific function or class by name in a FileDoc.
// Methods match either their qualified name or their bare name.
func LookupSymbol(fd *FileDoc, name string) (doc string, signature string, found bool) {
	for _, f := range fd.Funcs {
		if f.Name == name || strings.HasSuffix(f.Name, "."+name) {
			return f.Doc, funcSignature(f), true
		}
	}
	for _, c := range fd.Classes {
		if c.Name == name {
			return c.Doc, classSignature(c), true
		}
	}
	return "", "", false
}
