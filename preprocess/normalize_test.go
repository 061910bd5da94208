package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []LogicalLine
	}{
		{
			name:  "blank lines kept",
			input: "a\n\nb",
			expect: []LogicalLine{
				{Line: 1, EndLine: 1, Content: "a"},
				{Line: 2, EndLine: 2},
				{Line: 3, EndLine: 3, Content: "b"},
			},
		},
		{
			name:  "indent recorded",
			input: "    x = 1  ",
			expect: []LogicalLine{
				{Line: 1, EndLine: 1, Indent: "    ", Content: "x = 1"},
			},
		},
		{
			name:  "continuation chain",
			input: "x = 1 + \\\n  2 + \\\n  3\ny",
			expect: []LogicalLine{
				{Line: 1, EndLine: 3, Content: "x = 1 +   2 +   3"},
				{Line: 4, EndLine: 4, Content: "y"},
			},
		},
		{
			name:  "triple quoted string",
			input: "s = '''\nend\n'''\nx",
			expect: []LogicalLine{
				{Line: 1, EndLine: 3, Content: "s = '''\nend\n'''"},
				{Line: 4, EndLine: 4, Content: "x"},
			},
		},
		{
			name:  "string content keeps its whitespace",
			input: "  s = \"\"\"\n    body\n  \"\"\"",
			expect: []LogicalLine{
				{Line: 1, EndLine: 3, Indent: "  ", Content: "s = \"\"\"\n    body\n  \"\"\""},
			},
		},
		{
			name:  "triple quote opened and closed on one line",
			input: "s = \"\"\"do\"\"\"\nend",
			expect: []LogicalLine{
				{Line: 1, EndLine: 1, Content: "s = \"\"\"do\"\"\""},
				{Line: 2, EndLine: 2, Content: "end"},
			},
		},
		{
			name:  "unterminated triple quote runs to the end",
			input: "s = \"\"\"\nif x do\n",
			expect: []LogicalLine{
				{Line: 1, EndLine: 3, Content: "s = \"\"\"\nif x do"},
			},
		},
		{
			name:  "triple quote inside a string is not a delimiter",
			input: "s = \"'''\"\nx",
			expect: []LogicalLine{
				{Line: 1, EndLine: 1, Content: "s = \"'''\""},
				{Line: 2, EndLine: 2, Content: "x"},
			},
		},
		{
			name:  "backslash in comment does not continue",
			input: "# note \\\nx = 1",
			expect: []LogicalLine{
				{Line: 1, EndLine: 1, Content: "# note \\"},
				{Line: 2, EndLine: 2, Content: "x = 1"},
			},
		},
		{
			name:  "trailing continuation at end of input",
			input: "x = \\",
			expect: []LogicalLine{
				{Line: 1, EndLine: 1, Content: "x ="},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Normalize(tt.input))
		})
	}
}

func TestLogicalLine_Kinds(t *testing.T) {
	lines := Normalize("\n# comment\nx = 1 # trailing")
	require.Len(t, lines, 3)
	assert.True(t, lines[0].Blank())
	assert.True(t, lines[1].Comment())
	assert.False(t, lines[2].Comment())
	assert.False(t, lines[2].Blank())
}

func TestLex_Markers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []MarkerKind
	}{
		{"header", "if x do", []MarkerKind{Opener}},
		{"closer", "end", []MarkerKind{Closer}},
		{"closer with comment", "end # done", []MarkerKind{Closer}},
		{"inline", "if x do print(1) end", []MarkerKind{Opener, Closer}},
		{"else chain", "end else do", []MarkerKind{Closer, Opener}},
		{"string", `s = "do"`, nil},
		{"comment", "x = 1 # do", nil},
		{"keyword argument", "print(x, end='')", nil},
		{"attribute", "m.end", nil},
		{"call", "end()", nil},
		{"annotation", "end: int = 3", nil},
		{"tuple target", "a, end = f()", nil},
		{"comparison", "end == 1", []MarkerKind{Closer}},
		{"returned name", "return end", nil},
		{"operand", "x = start + end", nil},
		{"operand in header", "while not end do", []MarkerKind{Opener}},
		{"closer after inline statement", "if x do return end", []MarkerKind{Opener, Closer}},
		{"trailing name without inline opener", "print(x) end", nil},
		{"after string", `if "end" in s do`, []MarkerKind{Opener}},
		{"after bracket close", "] do", []MarkerKind{Opener}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lexLines(Normalize(tt.input))[0]
			var kinds []MarkerKind
			for _, m := range l.markers {
				kinds = append(kinds, m.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestLex_BracketsSpanLines(t *testing.T) {
	lines := lexLines(Normalize("f(a,\n  do,\n  end)\nif x do"))
	require.Len(t, lines, 4)
	assert.Empty(t, lines[1].markers)
	assert.Empty(t, lines[2].markers)
	require.Len(t, lines[3].markers, 1)
	assert.Equal(t, Opener, lines[3].markers[0].Kind)
}

func TestLex_MarkerPosition(t *testing.T) {
	lines := lexLines(Normalize("x = 1\n  if y do print(y) end"))
	require.Len(t, lines[1].markers, 2)

	open := lines[1].markers[0]
	assert.Equal(t, 2, open.Line)
	assert.Equal(t, 5, open.Offset)
	assert.Equal(t, "if y do print(y) end", open.Text)
	assert.Equal(t, "open", open.Kind.String())

	closeM := lines[1].markers[1]
	assert.Equal(t, 17, closeM.Offset)
	assert.Equal(t, "close", closeM.Kind.String())
}

func TestLex_CommentGap(t *testing.T) {
	l := lexLines(Normalize("if x do   # why"))[0]
	require.Len(t, l.tokens, 3)
	assert.Equal(t, tokText, l.tokens[0].kind)
	assert.Equal(t, tokOpen, l.tokens[1].kind)
	assert.Equal(t, tokComment, l.tokens[2].kind)
	assert.Equal(t, "   ", l.tokens[2].gap)
	assert.Equal(t, "# why", l.tokens[2].text)
}
