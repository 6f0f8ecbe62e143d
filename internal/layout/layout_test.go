package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/litarchive/internal/dom"
)

func mustDoc(t *testing.T, html string) dom.Node {
	t.Helper()
	doc, err := dom.ParseString(html)
	require.NoError(t, err)
	return doc
}

func TestClassify_DecisionOrder(t *testing.T) {
	rules := DefaultRules()
	continuation := `<a href="dragom5.html">Продолжение</a>`

	tests := []struct {
		name  string
		html  string
		links []Link
		want  Strategy
	}{
		{
			name:  "anchor wins over continuation",
			html:  continuation,
			links: []Link{{Text: "Стихотворение", Href: "dragom2.html#a1"}},
			want:  Anchor,
		},
		{
			name:  "continuation wins over chapter links",
			html:  continuation,
			links: []Link{{Text: "Глава", Href: "dragom3.html"}},
			want:  Sequential,
		},
		{
			name:  "continuation needs author href",
			html:  `<a href="other.html">Продолжение</a>`,
			links: []Link{{Text: "Глава", Href: "dragom3.html"}},
			want:  Chapter,
		},
		{
			name: "english continuation marker",
			html: `<a href="dragom9.html">(to be continued)</a>`,
			want: Sequential,
		},
		{
			name:  "chapter needs a work href",
			html:  `<p>text</p>`,
			links: []Link{{Text: "Ссылка", Href: "elsewhere.html"}},
			want:  Single,
		},
		{
			name: "no links is single",
			html: `<p>text</p>`,
			want: Single,
		},
		{
			name:  "co-author fragment links are ignored",
			html:  `<p>text</p>`,
			links: []Link{{Text: "Глазова", Href: "glazova1.html#x"}, {Text: "Глава", Href: "dragom4.html"}},
			want:  Chapter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(mustDoc(t, tt.html), tt.links, rules))
		})
	}
}

func TestClassify_NilDocument(t *testing.T) {
	got := Classify(nil, []Link{{Text: "x", Href: "dragom1.html"}}, DefaultRules())
	assert.Equal(t, Chapter, got)
}

func TestRules_Predicates(t *testing.T) {
	r := DefaultRules()

	assert.True(t, r.IsWork("/texts/DRAGOM1.html"))
	assert.False(t, r.IsWork("/texts/other.html"))
	assert.True(t, r.IsContinuation("Окончание"))
	assert.True(t, r.IsContinuation("продолжение следует"))
	assert.False(t, r.IsContinuation("Содержание"))
	assert.True(t, r.IsCoauthor("/texts/Barzakh2.html"))
	assert.False(t, r.IsCoauthor("/texts/dragom2.html"))
	assert.True(t, r.IsNext(Link{Text: "Продолжение", Href: "dragom2.html"}))
	assert.False(t, r.IsNext(Link{Text: "Продолжение", Href: "glazova.html"}))
}

func TestRules_Filter(t *testing.T) {
	r := DefaultRules()
	in := []Link{
		{Text: "a", Href: "dragom1.html"},
		{Text: "b", Href: "yampolsky1.html"},
		{Text: "c", Href: "dragom2.html"},
	}
	got := r.Filter(in)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "c", got[1].Text)
}

func TestNewRules_Errors(t *testing.T) {
	_, err := NewRules("(", DefaultContinuationPattern, nil)
	assert.Error(t, err)
	_, err = NewRules(DefaultWorkPattern, "", nil)
	assert.Error(t, err)

	r, err := NewRules("ivanov", "далее", []string{" Petrov ", ""})
	require.NoError(t, err)
	assert.True(t, r.IsCoauthor("PETROV.html"))
	assert.True(t, r.IsNext(Link{Text: "Далее", Href: "ivanov2.html"}))
}

func TestFragmentHelpers(t *testing.T) {
	assert.True(t, HasFragment("page.html#a"))
	assert.False(t, HasFragment("page.html"))
	assert.Equal(t, "page.html", StripFragment("page.html#a"))
	assert.Equal(t, "", StripFragment("#a"))
	assert.Equal(t, "a", Fragment("page.html#a"))
	assert.Equal(t, "", Fragment("page.html"))
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "anchor", Anchor.String())
	assert.Equal(t, "sequential", Sequential.String())
	assert.Equal(t, "chapter", Chapter.String())
	assert.Equal(t, "single", Single.String())
}
