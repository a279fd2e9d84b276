package plume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSegments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Segment
	}{
		{
			name:  "plain text",
			input: "Hello, World!",
			expected: []Segment{
				{Kind: SegmentText, Content: "Hello, World!", Line: 1, Col: 1, ContentLine: 1, ContentCol: 1},
			},
		},
		{
			name:  "single variable",
			input: "Hello {{ name }}!",
			expected: []Segment{
				{Kind: SegmentText, Content: "Hello ", Line: 1, Col: 1, ContentLine: 1, ContentCol: 1},
				{Kind: SegmentVariable, Content: "name", Line: 1, Col: 7, ContentLine: 1, ContentCol: 10},
				{Kind: SegmentText, Content: "!", Line: 1, Col: 17, ContentLine: 1, ContentCol: 17},
			},
		},
		{
			name:  "tag and text",
			input: "{% if ok %}yes{% endif %}",
			expected: []Segment{
				{Kind: SegmentTag, Content: "if ok", Line: 1, Col: 1, ContentLine: 1, ContentCol: 4},
				{Kind: SegmentText, Content: "yes", Line: 1, Col: 12, ContentLine: 1, ContentCol: 12},
				{Kind: SegmentTag, Content: "endif", Line: 1, Col: 15, ContentLine: 1, ContentCol: 18},
			},
		},
		{
			name:  "variable without surrounding spaces",
			input: "{{name}}",
			expected: []Segment{
				{Kind: SegmentVariable, Content: "name", Line: 1, Col: 1, ContentLine: 1, ContentCol: 3},
			},
		},
		{
			name:  "newlines advance line numbers",
			input: "a\nb\n{{ x }}",
			expected: []Segment{
				{Kind: SegmentText, Content: "a\nb\n", Line: 1, Col: 1, ContentLine: 1, ContentCol: 1},
				{Kind: SegmentVariable, Content: "x", Line: 3, Col: 1, ContentLine: 3, ContentCol: 4},
			},
		},
		{
			name:  "unclosed variable consumes rest of input",
			input: "a{{ name",
			expected: []Segment{
				{Kind: SegmentText, Content: "a", Line: 1, Col: 1, ContentLine: 1, ContentCol: 1},
				{Kind: SegmentVariable, Content: "name", Line: 1, Col: 2, ContentLine: 1, ContentCol: 5},
			},
		},
		{
			name:  "unclosed tag consumes rest of input",
			input: "{% if x",
			expected: []Segment{
				{Kind: SegmentTag, Content: "if x", Line: 1, Col: 1, ContentLine: 1, ContentCol: 4},
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, scanSegments(tc.input, DefaultDelims))
		})
	}
}

func TestScanSegmentsCustomDelims(t *testing.T) {
	segs := scanSegments("say << word >> loudly", Delims{Left: "<<", Right: ">>"})
	require.Len(t, segs, 3)
	assert.Equal(t, SegmentVariable, segs[1].Kind)
	assert.Equal(t, "word", segs[1].Content)

	// The default pair is plain text under custom delimiters.
	segs = scanSegments("{{ word }}", Delims{Left: "<<", Right: ">>"})
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "{{ word }}", segs[0].Content)
}

func TestScanSegmentsTagMarkersFixed(t *testing.T) {
	// {% %} stays the tag pair no matter the variable delimiters.
	segs := scanSegments("<< x >>{% endif %}", Delims{Left: "<<", Right: ">>"})
	require.Len(t, segs, 2)
	assert.Equal(t, SegmentVariable, segs[0].Kind)
	assert.Equal(t, SegmentTag, segs[1].Kind)
	assert.Equal(t, "endif", segs[1].Content)
}

func TestScanSegmentsTagPriority(t *testing.T) {
	// A tag marker wins even when the variable delimiter shares its prefix.
	segs := scanSegments("{% if x %}", Delims{Left: "{", Right: "}"})
	require.NotEmpty(t, segs)
	assert.Equal(t, SegmentTag, segs[0].Kind)
	assert.Equal(t, "if x", segs[0].Content)
}
