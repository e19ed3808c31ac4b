package mention

import (
	"html"
	"iter"
	"regexp"
	"strings"

	"clubhouse/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

// SegmentKind tells a renderer how to display a Segment.
type SegmentKind string

const (
	SegmentText      SegmentKind = "text"
	SegmentMention   SegmentKind = "mention"
	SegmentHighlight SegmentKind = "highlight"
)

// Segment is one piece of a rendered body.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Text     string      `json:"text"`
	UserID   string      `json:"user_id,omitempty"`
	Username string      `json:"username,omitempty"`
}

// Render splits a stored body into text, mention and highlight segments.
// Tokens whose user is missing from profiles degrade to the literal "@<id>".
// When highlight is non-empty, case-insensitive matches inside text segments
// are emitted as highlight segments. Empty segments are never produced.
func Render(stored string, profiles map[string]models.Profile, highlight string) iter.Seq[Segment] {
	var hl *regexp.Regexp
	if q := strings.TrimSpace(highlight); q != "" {
		hl = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(q))
	}

	return func(yield func(Segment) bool) {
		rest := stored
		for rest != "" {
			loc := tokenPattern.FindStringSubmatchIndex(rest)
			if loc == nil {
				emitText(rest, hl, yield)
				return
			}
			if !emitText(rest[:loc[0]], hl, yield) {
				return
			}
			id := rest[loc[2]:loc[3]]
			seg := Segment{Kind: SegmentText, Text: "@" + id}
			if p, ok := profiles[id]; ok {
				seg = Segment{Kind: SegmentMention, Text: p.DisplayName, UserID: id, Username: p.Username}
				if seg.Text == "" {
					seg.Text = p.Username
				}
			}
			if !yield(seg) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

func emitText(s string, hl *regexp.Regexp, yield func(Segment) bool) bool {
	if s == "" {
		return true
	}
	if hl == nil {
		return yield(Segment{Kind: SegmentText, Text: s})
	}
	last := 0
	for _, m := range hl.FindAllStringIndex(s, -1) {
		if m[0] > last {
			if !yield(Segment{Kind: SegmentText, Text: s[last:m[0]]}) {
				return false
			}
		}
		if !yield(Segment{Kind: SegmentHighlight, Text: s[m[0]:m[1]]}) {
			return false
		}
		last = m[1]
	}
	if last < len(s) {
		return yield(Segment{Kind: SegmentText, Text: s[last:]})
	}
	return true
}

// PlainText concatenates the display text of segments, prefixing mentions
// with '@'.
func PlainText(segments iter.Seq[Segment]) string {
	var b strings.Builder
	for seg := range segments {
		if seg.Kind == SegmentMention {
			b.WriteByte('@')
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("mark")
	p.AllowAttrs("href", "class", "data-user-id").OnElements("a")
	p.AllowRelativeURLs(true)
	p.RequireNoFollowOnLinks(true)
	return p
}()

// RenderHTML renders segments as sanitized HTML. Mentions link to the user's
// profile page and highlights are wrapped in <mark>.
func RenderHTML(segments iter.Seq[Segment]) string {
	var b strings.Builder
	for seg := range segments {
		switch seg.Kind {
		case SegmentMention:
			b.WriteString(`<a class="mention" href="/users/`)
			b.WriteString(html.EscapeString(seg.Username))
			b.WriteString(`" data-user-id="`)
			b.WriteString(html.EscapeString(seg.UserID))
			b.WriteString(`">@`)
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString(`</a>`)
		case SegmentHighlight:
			b.WriteString("<mark>")
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString("</mark>")
		default:
			b.WriteString(html.EscapeString(seg.Text))
		}
	}
	return htmlPolicy.Sanitize(b.String())
}
