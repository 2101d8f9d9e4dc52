package transcript

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Page is a fetched transcript page ready for extraction.
type Page struct {
	URL  *url.URL
	HTML []byte
	Doc  *goquery.Document

	// Content is the content container, or an empty selection when the page
	// has none.
	Content *goquery.Selection
}

// Strategy produces the text blocks of a page. An empty result means the
// strategy does not apply and the next one is tried.
type Strategy interface {
	Name() string
	Blocks(page *Page) ([]string, error)
}

// DefaultStrategies tries paragraphs, then generic containers for older
// markup, then readability over the whole page.
func DefaultStrategies() []Strategy {
	return []Strategy{BlockStrategy("p"), BlockStrategy("div"), ReadabilityStrategy{}}
}

// BlockStrategy takes the full text of every direct child of the content
// container with this tag. Deeper matches belong to their child block.
type BlockStrategy string

func (s BlockStrategy) Name() string {
	return string(s)
}

func (s BlockStrategy) Blocks(page *Page) ([]string, error) {
	if page.Content == nil || page.Content.Length() == 0 {
		return nil, nil
	}

	var blocks []string
	page.Content.ChildrenFiltered(string(s)).Each(func(i int, el *goquery.Selection) {
		if text := strings.TrimSpace(el.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks, nil
}

// ReadabilityStrategy extracts the main article text of the whole page and
// splits it into lines.
type ReadabilityStrategy struct{}

func (ReadabilityStrategy) Name() string {
	return "readability"
}

func (ReadabilityStrategy) Blocks(page *Page) ([]string, error) {
	article, err := readability.FromReader(bytes.NewReader(page.HTML), page.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	var blocks []string
	for _, line := range strings.Split(article.TextContent, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			blocks = append(blocks, line)
		}
	}
	return blocks, nil
}
