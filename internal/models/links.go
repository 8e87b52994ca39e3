// file: internal/models/links.go
// version: 1.0.0
// guid: 020fb5d9-a536-4423-8b13-9086541a5a66

package models

import (
	"net/url"
	"strings"
)

// PurchaseLink is a store or library search link for a book.
type PurchaseLink struct {
	Store string
	URL   string
}

// PurchaseLinks builds store and library search URLs for b.
func PurchaseLinks(b Book) []PurchaseLink {
	title := url.QueryEscape(b.Title)
	titleAndAuthors := url.QueryEscape(strings.TrimSpace(b.Title + " " + strings.Join(b.Authors, " ")))

	play := "https://play.google.com/store/search?q=" + title
	if b.PreviewLink != "" {
		play = b.PreviewLink
	}
	return []PurchaseLink{
		{Store: "Amazon", URL: "https://www.amazon.com/s?k=" + titleAndAuthors},
		{Store: "Google Play Books", URL: play},
		{Store: "Apple Books", URL: "https://books.apple.com/search?term=" + title},
		{Store: "Bookshop.org", URL: "https://bookshop.org/search?keywords=" + title},
		{Store: "WorldCat", URL: "https://www.worldcat.org/search?q=" + title},
		{Store: "Open Library", URL: "https://openlibrary.org/search?q=" + title},
	}
}
