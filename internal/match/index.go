package match

import "github.com/MeKo-Tech/pdfmask/internal/document"

// PageIndex wraps a page and loads its positioned words lazily on first use,
// caching them for the lifetime of the page visit. The reading-order index of
// each word is preserved exactly as the backend produced it.
type PageIndex struct {
	page   document.Page
	words  []document.PositionedWord
	loaded bool
}

// NewPageIndex creates an index over the given page.
func NewPageIndex(page document.Page) *PageIndex {
	return &PageIndex{page: page}
}

// Page returns the underlying page.
func (ix *PageIndex) Page() document.Page { return ix.page }

// Words returns the page's positioned words in reading order, extracting them
// from the backend on the first call only.
func (ix *PageIndex) Words() ([]document.PositionedWord, error) {
	if ix.loaded {
		return ix.words, nil
	}
	words, err := ix.page.Words()
	if err != nil {
		return nil, err
	}
	ix.words = words
	ix.loaded = true
	return ix.words, nil
}
