package mention

import (
	"slices"
	"testing"

	"clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRender_UnresolvedTokenDegrades(t *testing.T) {
	t.Parallel()

	segs := slices.Collect(Render("hey [mention:gone-1]!", nil, ""))
	assert.Equal(t, []Segment{
		{Kind: SegmentText, Text: "hey "},
		{Kind: SegmentText, Text: "@gone-1"},
		{Kind: SegmentText, Text: "!"},
	}, segs)
}

func TestRender_Highlight(t *testing.T) {
	t.Parallel()

	profiles := map[string]models.Profile{"u-1": {ID: "u-1", Username: "go", DisplayName: "Gopher"}}
	segs := slices.Collect(Render("Go is fun, [mention:u-1] says go go", profiles, "go"))
	assert.Equal(t, []Segment{
		{Kind: SegmentHighlight, Text: "Go"},
		{Kind: SegmentText, Text: " is fun, "},
		{Kind: SegmentMention, Text: "Gopher", UserID: "u-1", Username: "go"},
		{Kind: SegmentText, Text: " says "},
		{Kind: SegmentHighlight, Text: "go"},
		{Kind: SegmentText, Text: " "},
		{Kind: SegmentHighlight, Text: "go"},
	}, segs)
}

func TestRender_HighlightMetaCharacters(t *testing.T) {
	t.Parallel()

	segs := slices.Collect(Render("cost: $5.00 (approx)", nil, "(approx)"))
	assert.Equal(t, []Segment{
		{Kind: SegmentText, Text: "cost: $5.00 "},
		{Kind: SegmentHighlight, Text: "(approx)"},
	}, segs)
}

func TestRender_StopsEarly(t *testing.T) {
	t.Parallel()

	var got []Segment
	for seg := range Render("a [mention:x] b [mention:y] c", nil, "") {
		got = append(got, seg)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}

func TestRender_DisplayNameFallsBackToUsername(t *testing.T) {
	t.Parallel()

	segs := slices.Collect(Render("[mention:u-9]", map[string]models.Profile{"u-9": {ID: "u-9", Username: "nine"}}, ""))
	assert.Equal(t, []Segment{{Kind: SegmentMention, Text: "nine", UserID: "u-9", Username: "nine"}}, segs)
}

func TestRenderHTML_EscapesAndLinks(t *testing.T) {
	t.Parallel()

	profiles := map[string]models.Profile{"u-42": {ID: "u-42", Username: "alice", DisplayName: "Alice A."}}
	out := RenderHTML(Render("<script>x</script> hi [mention:u-42] there", profiles, "there"))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `href="/users/alice"`)
	assert.Contains(t, out, ">@Alice A.</a>")
	assert.Contains(t, out, "<mark>there</mark>")
}
