package collect

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/litarchive/internal/dom"
	"github.com/hyperifyio/litarchive/internal/layout"
)

const base = "http://www.vavilon.ru/texts/"

var errNotFound = errors.New("not found")

// fakeSource serves pages from memory and counts requests per URL.
type fakeSource struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

func newFakeSource(pages map[string]string) *fakeSource {
	return &fakeSource{pages: pages, calls: make(map[string]int)}
}

func (f *fakeSource) Fetch(ctx context.Context, url string) (dom.Node, error) {
	f.mu.Lock()
	f.calls[url]++
	html, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, errNotFound
	}
	return dom.ParseString(html)
}

func (f *fakeSource) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func TestCollection_Single(t *testing.T) {
	src := newFakeSource(map[string]string{
		base + "dragom1.html": `<html><body>
			<p>Первый абзац текста.</p>
			<p>Второй абзац текста.</p>
			<p>Третий абзац текста.</p>
			<p>Copyright (c) Вавилон</p>
		</body></html>`,
	})
	items := New(src).Collection(context.Background(), base+"dragom1.html")

	require.Len(t, items, 1)
	assert.Equal(t, DefaultSingleTitle, items[0].ItemTitle)
	assert.Equal(t, "Первый абзац текста.\n\nВторой абзац текста.\n\nТретий абзац текста.", items[0].Text)
}

func TestCollection_FetchFailureIsEmpty(t *testing.T) {
	items := New(newFakeSource(nil)).Collection(context.Background(), base+"missing.html")
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCollection_Chapters(t *testing.T) {
	src := newFakeSource(map[string]string{
		base + "dragom10.html": `<table><tr><td>
			<p><a href="dragom11.html">Глава первая</a></p>
			<p><a href="dragom12.html">Глава вторая</a></p>
			<p><a href="glazova1.html">Предисловие Глазовой</a></p>
		</td></tr></table>`,
		base + "dragom11.html": `<p>Текст первой главы.</p>`,
		base + "glazova1.html": `<p>Чужой текст.</p>`,
	})
	items := New(src).Collection(context.Background(), base+"dragom10.html")

	require.Len(t, items, 1, "unreachable chapter is skipped")
	assert.Equal(t, "Глава первая", items[0].ItemTitle)
	assert.Equal(t, "Текст первой главы.", items[0].Text)
	assert.Equal(t, 1, src.count(base+"dragom12.html"))
	assert.Zero(t, src.count(base+"glazova1.html"), "co-author pages are never fetched")
}

func TestCollection_Anchors(t *testing.T) {
	src := newFakeSource(map[string]string{
		base + "dragom20.html": `<table><tr><td>
			<p><a href="dragom21.html#s1">Первое</a></p>
			<p><a href="dragom21.html#s2">Второе</a></p>
			<p><a href="dragom22.html#x">Прочее</a></p>
		</td></tr></table>`,
		base + "dragom21.html": `<html><body>
			<a name="s1"></a><p>Один</p><p>Два</p>
			<a name="s2"></a><p>Три</p>
			<a name="zz"></a><p>Лишнее</p>
		</body></html>`,
	})
	items := New(src).Collection(context.Background(), base+"dragom20.html")

	require.Len(t, items, 2)
	assert.Equal(t, "Первое", items[0].ItemTitle)
	assert.Equal(t, "Один\n\nДва", items[0].Text)
	assert.Equal(t, "Второе", items[1].ItemTitle)
	assert.Equal(t, "Три", items[1].Text)
	assert.Zero(t, src.count(base+"dragom22.html"))
}

func TestAnchors_RawFallback(t *testing.T) {
	src := newFakeSource(map[string]string{
		base + "dragom30.html": `<body><a name="n1"></a><p>ISBN 5-87135-060-X</p></body>`,
	})
	links := []layout.Link{{Text: "Выходные данные", Href: "dragom30.html#n1"}}
	items := New(src).Anchors(context.Background(), base+"toc.html", links)

	require.Len(t, items, 1)
	assert.Equal(t, "ISBN 5-87135-060-X", items[0].Text)
}

func TestAnchors_MajorityVote(t *testing.T) {
	tests := []struct {
		name  string
		links []layout.Link
		want  string
		skip  string
	}{
		{
			name: "majority",
			links: []layout.Link{
				{Text: "a", Href: "page1.html#a"},
				{Text: "b", Href: "page2.html#b"},
				{Text: "c", Href: "page1.html#c"},
			},
			want: base + "page1.html",
			skip: base + "page2.html",
		},
		{
			name: "tie goes to first seen",
			links: []layout.Link{
				{Text: "a", Href: "page2.html#a"},
				{Text: "b", Href: "page1.html#b"},
			},
			want: base + "page2.html",
			skip: base + "page1.html",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(nil)
			items := New(src).Anchors(context.Background(), base+"toc.html", tt.links)
			assert.Empty(t, items)
			assert.Equal(t, 1, src.count(tt.want))
			assert.Zero(t, src.count(tt.skip))
		})
	}
}

func TestAnchors_EmptyInput(t *testing.T) {
	src := newFakeSource(nil)
	items := New(src).Anchors(context.Background(), base+"toc.html", nil)
	require.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, src.calls)
}

func TestCollection_SequentialCycle(t *testing.T) {
	src := newFakeSource(map[string]string{
		base + "dragomA.html": `<table><tr><td>
			<p>Часть первая.</p>
			<p><a href="dragomB.html">Продолжение</a></p>
		</td></tr></table>`,
		base + "dragomB.html": `<table><tr><td>
			<p>Часть вторая.</p>
			<p><a href="dragomA.html#top">Окончание</a></p>
		</td></tr></table>`,
	})
	items := New(src).Collection(context.Background(), base+"dragomA.html")

	require.Len(t, items, 1)
	assert.Equal(t, DefaultFullTextTitle, items[0].ItemTitle)
	assert.Equal(t, "Часть первая.\n\nПродолжение\n\nЧасть вторая.\n\nОкончание", items[0].Text)
	assert.Equal(t, 1, src.count(base+"dragomA.html"))
	assert.Equal(t, 1, src.count(base+"dragomB.html"))
}

func TestSequential_StartUnavailable(t *testing.T) {
	items := New(newFakeSource(nil)).Sequential(context.Background(), base+"dragom40.html")
	require.Len(t, items, 1)
	assert.Equal(t, "", items[0].Text)
}

func TestSequential_StopsOnBrokenLink(t *testing.T) {
	src := newFakeSource(map[string]string{
		base + "dragom50.html": `<p>Начало.</p><a href="dragom51.html">Продолжение</a>`,
	})
	c := New(src)
	c.FullTextTitle = "Полный текст"
	items := c.Sequential(context.Background(), base+"dragom50.html")

	require.Len(t, items, 1)
	assert.Equal(t, "Полный текст", items[0].ItemTitle)
	assert.Equal(t, "Начало.", items[0].Text)
	assert.Equal(t, 1, src.count(base+"dragom51.html"))
}

func TestDetect_LinkFiltering(t *testing.T) {
	src := newFakeSource(map[string]string{
		base + "dragom60.html": `<table><tr><td>
			<p><a href="dragom61.html">Стихи</a></p>
			<p><a href="dragom62.html">II</a></p>
			<p><a>Без ссылки</a></p>
			<p><a href="  ">Пустая ссылка</a></p>
		</td></tr></table>`,
	})
	strategy, links, err := New(src).Detect(context.Background(), base+"dragom60.html")

	require.NoError(t, err)
	assert.Equal(t, layout.Chapter, strategy)
	assert.Equal(t, []layout.Link{{Text: "Стихи", Href: "dragom61.html"}}, links)
}

func TestDetect_FetchError(t *testing.T) {
	_, _, err := New(newFakeSource(nil)).Detect(context.Background(), base+"x.html")
	assert.ErrorIs(t, err, errNotFound)
}

func TestContentNodes_NoDuplicates(t *testing.T) {
	doc, err := dom.ParseString(`<table><tr><td><p>А</p><font>Б</font></td></tr></table><font><p>В</p></font><ul><li>Г</li></ul>`)
	require.NoError(t, err)

	c := New(nil)
	nodes := c.contentNodes(doc)
	require.Len(t, nodes, 4)
	assert.Equal(t, "p", nodes[0].Name())
	assert.Equal(t, "font", nodes[1].Name())
	assert.Equal(t, "font", nodes[2].Name())
	assert.Equal(t, "ul", nodes[3].Name())
}

func TestResolve(t *testing.T) {
	got, err := Resolve(base+"dragom1.html", "dragom2.html#s")
	require.NoError(t, err)
	assert.Equal(t, base+"dragom2.html#s", got)

	got, err = Resolve(base+"dragom1.html", "")
	require.NoError(t, err)
	assert.Equal(t, base+"dragom1.html", got)

	_, err = Resolve(base, "http://[::1")
	assert.ErrorIs(t, err, ErrMalformedLink)
}

func TestZeroCollectorUsesDefaults(t *testing.T) {
	src := newFakeSource(map[string]string{base + "p.html": `<p>Только текст.</p>`})
	c := &Collector{Source: src}
	items := c.Collection(context.Background(), base+"p.html")
	require.Len(t, items, 1)
	assert.Equal(t, DefaultSingleTitle, items[0].ItemTitle)
	assert.Equal(t, "Только текст.", items[0].Text)
}
