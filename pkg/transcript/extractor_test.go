package transcript

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing-trends/pkg/artifact"
	"briefing-trends/pkg/domain"
	"briefing-trends/pkg/fetcher"
)

const paragraphPage = `<html><body>
<div id="nav"><p>Skip to content</p></div>
<div id="content">
  <h1>Press Briefing by the Press Secretary, 5/12/14</h1>
  <p>  MR. CARNEY: Good afternoon.  </p>
  <p></p>
  <p>Q: Jay, about ebola?</p>
  <p>MR. CARNEY: Ebola is contained.</p>
</div>
</body></html>`

const divPage = `<html><body>
<div id="content">
  <div>MR. CARNEY: Thanks for coming.</div>
  <div>Q: On Ukraine?</div>
  <div>MR. CARNEY: We are watching <span>Crimea</span>.</div>
</div>
</body></html>`

type mockMirror struct {
	mu   sync.Mutex
	docs []*domain.TranscriptDocument
	err  error
}

func (m *mockMirror) Save(ctx context.Context, doc *domain.TranscriptDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return m.err
}

func newExtractor(t *testing.T, pages map[string]string, opts ...Option) (*Extractor, artifact.Layout) {
	t.Helper()
	layout := artifact.Layout{DataDir: t.TempDir()}
	f := fetcher.Func(func(ctx context.Context, url string) ([]byte, error) {
		body, ok := pages[url]
		if !ok {
			return nil, &fetcher.FetchError{URL: url, StatusCode: 404}
		}
		return []byte(body), nil
	})
	e, err := NewExtractor(f, layout, "http://whitehouse.test", opts...)
	require.NoError(t, err)
	return e, layout
}

func TestExtract_Paragraphs(t *testing.T) {
	e, _ := newExtractor(t, nil)

	text, strategy, err := e.Extract([]byte(paragraphPage), "http://whitehouse.test/a")
	require.NoError(t, err)
	assert.Equal(t, "p", strategy)
	assert.Equal(t, "MR. CARNEY: Good afternoon.\nQ: Jay, about ebola?\nMR. CARNEY: Ebola is contained.", text)
}

func TestExtract_DivFallback(t *testing.T) {
	e, _ := newExtractor(t, nil)

	text, strategy, err := e.Extract([]byte(divPage), "http://whitehouse.test/b")
	require.NoError(t, err)
	assert.Equal(t, "div", strategy)
	assert.Equal(t, "MR. CARNEY: Thanks for coming.\nQ: On Ukraine?\nMR. CARNEY: We are watching Crimea.", text)
}

func TestExtract_NestedParagraphDoesNotHideDivs(t *testing.T) {
	e, _ := newExtractor(t, nil)

	page := `<html><body><div id="content">` +
		`<div>Q: On ebola?</div>` +
		`<div>MR. CARNEY: contained.</div>` +
		`<div class="share"><p>Share this</p></div>` +
		`</div></body></html>`

	text, strategy, err := e.Extract([]byte(page), "http://whitehouse.test/g")
	require.NoError(t, err)
	assert.Equal(t, "div", strategy)
	assert.Equal(t, "Q: On ebola?\nMR. CARNEY: contained.\nShare this", text)
}

func TestExtract_NestedDivKeepsParentText(t *testing.T) {
	e, _ := newExtractor(t, nil)

	page := `<html><body><div id="content">` +
		`<div>Q: On ebola?<div>MR. CARNEY: contained.</div></div>` +
		`</div></body></html>`

	text, strategy, err := e.Extract([]byte(page), "http://whitehouse.test/h")
	require.NoError(t, err)
	assert.Equal(t, "div", strategy)
	assert.Equal(t, "Q: On ebola?MR. CARNEY: contained.", text)
}

func TestBlockStrategy_DirectChildrenOnly(t *testing.T) {
	e, _ := newExtractor(t, nil, WithStrategies(BlockStrategy("p")))

	page := `<html><body><div id="content">` +
		`<p>Q: First?</p>` +
		`<blockquote><p>quoted</p></blockquote>` +
		`<p>MR. EARNEST: Second.</p>` +
		`</div></body></html>`

	text, _, err := e.Extract([]byte(page), "http://whitehouse.test/i")
	require.NoError(t, err)
	assert.Equal(t, "Q: First?\nMR. EARNEST: Second.", text)
}

func TestExtract_NoContent(t *testing.T) {
	e, _ := newExtractor(t, nil, WithStrategies(BlockStrategy("p"), BlockStrategy("div")))

	_, _, err := e.Extract([]byte(`<html><body><p>Page not found</p></body></html>`), "http://whitehouse.test/c")
	assert.True(t, errors.Is(err, ErrNoContent))
}

func TestExtract_EmptyTranscript(t *testing.T) {
	e, _ := newExtractor(t, nil, WithStrategies(BlockStrategy("p"), BlockStrategy("div")))

	_, _, err := e.Extract([]byte(`<html><body><div id="content"><span>  </span></div></body></html>`), "http://whitehouse.test/d")
	assert.True(t, errors.Is(err, ErrEmptyTranscript))
}

type fixedStrategy struct {
	name   string
	blocks []string
	err    error
}

func (s fixedStrategy) Name() string                    { return s.name }
func (s fixedStrategy) Blocks(*Page) ([]string, error) { return s.blocks, s.err }

func TestExtract_StrategyOrder(t *testing.T) {
	e, _ := newExtractor(t, nil, WithStrategies(
		fixedStrategy{name: "broken", err: errors.New("boom")},
		fixedStrategy{name: "empty"},
		fixedStrategy{name: "winner", blocks: []string{"one", "two"}},
		fixedStrategy{name: "unused", blocks: []string{"three"}},
	))

	text, strategy, err := e.Extract([]byte(paragraphPage), "http://whitehouse.test/e")
	require.NoError(t, err)
	assert.Equal(t, "winner", strategy)
	assert.Equal(t, "one\ntwo", text)
}

func TestExtract_ContentSelector(t *testing.T) {
	e, _ := newExtractor(t, nil, WithContentSelector("#nav"))

	text, _, err := e.Extract([]byte(paragraphPage), "http://whitehouse.test/f")
	require.NoError(t, err)
	assert.Equal(t, "Skip to content", text)
}

func TestReadabilityStrategy(t *testing.T) {
	sentence := "The administration continues to monitor the situation closely and will provide updates as they become available to the public. "
	html := `<html><head><title>Briefing</title></head><body><article>` +
		"<p>" + strings.Repeat(sentence, 5) + "</p>" +
		"<p>" + strings.Repeat(sentence, 5) + "</p>" +
		"<p>" + strings.Repeat(sentence, 5) + "</p>" +
		`</article></body></html>`

	blocks, err := ReadabilityStrategy{}.Blocks(&Page{HTML: []byte(html)})
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	assert.Contains(t, strings.Join(blocks, "\n"), "monitor the situation closely")
}

func TestResolveURL(t *testing.T) {
	e, _ := newExtractor(t, nil)

	got, err := e.ResolveURL("/the-press-office/2014/05/12/press-briefing")
	require.NoError(t, err)
	assert.Equal(t, "http://whitehouse.test/the-press-office/2014/05/12/press-briefing", got)

	got, err = e.ResolveURL("https://other.test/x")
	require.NoError(t, err)
	assert.Equal(t, "https://other.test/x", got)
}

func TestNewExtractor_InvalidOrigin(t *testing.T) {
	_, err := NewExtractor(nil, artifact.Layout{}, "whitehouse.gov")
	assert.Error(t, err)
}

func TestProcess(t *testing.T) {
	mirror := &mockMirror{}
	e, layout := newExtractor(t, map[string]string{
		"http://whitehouse.test/the-press-office/2014/05/12/briefing": paragraphPage,
	}, WithMirror(mirror))

	record := domain.BriefingRecord{
		Date:          time.Date(2014, time.May, 12, 0, 0, 0, 0, time.UTC),
		Title:         "Press Briefing by the Press Secretary, 5/12/14",
		TranscriptURL: "/the-press-office/2014/05/12/briefing",
	}

	doc, err := e.Process(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "05-12-14-press-briefing-by-the-press-secretary-51214", doc.Slug)
	assert.Equal(t, "http://whitehouse.test/the-press-office/2014/05/12/briefing", doc.URL)

	data, err := os.ReadFile(layout.TextPath(doc.Slug))
	require.NoError(t, err)
	assert.Equal(t, doc.Text, string(data))

	require.Len(t, mirror.docs, 1)
	assert.Equal(t, doc.Slug, mirror.docs[0].Slug)
}

func TestProcess_MirrorFailureIsNotFatal(t *testing.T) {
	mirror := &mockMirror{err: errors.New("mongo down")}
	e, _ := newExtractor(t, map[string]string{"http://whitehouse.test/b": divPage}, WithMirror(mirror))

	_, err := e.Process(context.Background(), domain.BriefingRecord{
		Date: time.Date(2014, time.March, 3, 0, 0, 0, 0, time.UTC), Title: "Press Briefing", TranscriptURL: "/b",
	})
	assert.NoError(t, err)
}

func TestProcess_FetchErrorCarriesSlug(t *testing.T) {
	e, _ := newExtractor(t, nil)

	_, err := e.Process(context.Background(), domain.BriefingRecord{
		Date: time.Date(2014, time.March, 3, 0, 0, 0, 0, time.UTC), Title: "Press Briefing", TranscriptURL: "/missing",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "03-03-14-press-briefing")

	var fetchErr *fetcher.FetchError
	assert.True(t, errors.As(err, &fetchErr))
}
