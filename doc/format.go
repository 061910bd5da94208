package doc

import (
	"strings"
)

// FormatFile formats a FileDoc for terminal display.
func FormatFile(fd *FileDoc) string {
	var sb strings.Builder

	if fd.Doc != "" {
		sb.WriteString(fd.Doc)
		sb.WriteString("\n\n")
	}

	for _, c := range fd.Classes {
		if c.Doc == "" {
			continue
		}
		writeEntry(&sb, classSignature(c), c.Doc)
		sb.WriteString("\n")
	}

	for _, f := range fd.Funcs {
		if f.Doc == "" {
			continue
		}
		writeEntry(&sb, funcSignature(f), f.Doc)
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// FormatSymbol formats a single symbol lookup result.
func FormatSymbol(docStr, signature string) string {
	var sb strings.Builder
	writeEntry(&sb, signature, docStr)
	return sb.String()
}

func writeEntry(sb *strings.Builder, signature, doc string) {
	sb.WriteString(signature)
	sb.WriteString("\n")
	if doc != "" {
		sb.WriteString("    ")
		sb.WriteString(strings.ReplaceAll(doc, "\n", "\n    "))
		sb.WriteString("\n")
	}
}

func classSignature(c ClassDoc) string {
	sig := "class " + c.Name
	if len(c.Bases) > 0 {
		sig += "(" + strings.Join(c.Bases, ", ") + ")"
	}
	return sig
}

func funcSignature(f FuncDoc) string {
	return "def " + f.Name + "(" + strings.Join(f.Params, ", ") + ")"
}
