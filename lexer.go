package plume

import "strings"

// SegmentKind distinguishes the three top-level pieces a template is made of.
type SegmentKind int

const (
	// SegmentText is literal output, stored verbatim.
	SegmentText SegmentKind = iota
	// SegmentTag is the trimmed content between {% and %}.
	SegmentTag
	// SegmentVariable is the trimmed content between the variable delimiters.
	SegmentVariable
)

// Segment is one lexed piece of a template. Line and Col point at the first
// character of the segment (the opening marker for tags and variables);
// ContentLine and ContentCol point at the first character of Content, past
// the marker and any leading whitespace, so errors inside a segment report
// the offending position rather than the marker's.
type Segment struct {
	Kind        SegmentKind
	Content     string
	Line        int
	Col         int
	ContentLine int
	ContentCol  int
}

// Delims holds the variable delimiter pair. Tag delimiters are fixed {% %}.
type Delims struct {
	Left  string
	Right string
}

// DefaultDelims is the variable delimiter pair used unless configured.
var DefaultDelims = Delims{Left: "{{", Right: "}}"}

const (
	tagStart = "{%"
	tagEnd   = "%}"
)

// segmentLexer scans raw template text into a flat segment stream in a single
// left-to-right pass.
type segmentLexer struct {
	input  string
	pos    int
	line   int
	col    int
	delims Delims
}

// scanSegments tokenizes src into TEXT/TAG/VARIABLE segments. It cannot fail:
// an opening marker with no matching end marker greedily consumes the rest of
// the input as that segment's content.
func scanSegments(src string, delims Delims) []Segment {
	if delims.Left == "" || delims.Right == "" {
		delims = DefaultDelims
	}
	l := &segmentLexer{input: src, line: 1, col: 1, delims: delims}
	var segs []Segment
	for l.pos < len(l.input) {
		segs = append(segs, l.next())
	}
	return segs
}

// next returns the segment starting at the current position. Tag markers take
// priority over variable markers, which take priority over literal text.
func (l *segmentLexer) next() Segment {
	rest := l.input[l.pos:]
	switch {
	case strings.HasPrefix(rest, tagStart):
		return l.scanDelimited(SegmentTag, tagStart, tagEnd)
	case strings.HasPrefix(rest, l.delims.Left):
		return l.scanDelimited(SegmentVariable, l.delims.Left, l.delims.Right)
	default:
		return l.scanText()
	}
}

// scanDelimited consumes an open marker, its content, and the matching end
// marker. Missing end markers degrade to consuming everything up to
// end-of-input as the content.
func (l *segmentLexer) scanDelimited(kind SegmentKind, open, close string) Segment {
	seg := Segment{Kind: kind, Line: l.line, Col: l.col}
	l.advance(open)
	content := l.input[l.pos:]
	end := strings.Index(content, close)
	if end != -1 {
		content = content[:end]
	}
	lead := len(content) - len(strings.TrimLeft(content, " \t\n\r"))
	l.advance(content[:lead])
	seg.ContentLine, seg.ContentCol = l.line, l.col
	l.advance(content[lead:])
	if end != -1 {
		l.advance(close)
	}
	seg.Content = strings.TrimSpace(content)
	return seg
}

// scanText consumes literal text up to the next tag or variable marker, or to
// end-of-input. Text is stored verbatim, embedded newlines included.
func (l *segmentLexer) scanText() Segment {
	seg := Segment{Kind: SegmentText, Line: l.line, Col: l.col, ContentLine: l.line, ContentCol: l.col}
	rest := l.input[l.pos:]

	next := strings.Index(rest, tagStart)
	if i := strings.Index(rest, l.delims.Left); i != -1 && (next == -1 || i < next) {
		next = i
	}
	if next == -1 {
		seg.Content = rest
		l.advance(rest)
		return seg
	}
	seg.Content = rest[:next]
	l.advance(seg.Content)
	return seg
}

// advance moves past s, tracking line and column for error positions.
func (l *segmentLexer) advance(s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
	l.pos += len(s)
}
