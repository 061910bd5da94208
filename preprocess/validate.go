package preprocess

// validate checks that every opener has exactly one closer, correctly
// nested. It stops at the first violation. Markers on one line are taken in
// order, so a line starting with end and ending with do closes before it
// opens.
func validate(lines []lexedLine) error {
	var stack []BlockMarker
	for _, l := range lines {
		if l.Blank() || l.Comment() {
			continue
		}
		for _, m := range l.markers {
			switch m.Kind {
			case Closer:
				if len(stack) == 0 {
					return &UnmatchedBlockError{Kind: UnmatchedCloser, Line: m.Line, Snippet: m.Text}
				}
				stack = stack[:len(stack)-1]
			case Opener:
				stack = append(stack, m)
			}
		}
	}
	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return &UnmatchedBlockError{Kind: UnclosedOpener, Line: open.Line, Snippet: open.Text}
	}
	return nil
}
