// file: internal/catalog/volume.go
// version: 1.0.0
// guid: 350fa0a1-c85e-4686-84fb-6bb504857f9c

package catalog

import (
	"strings"

	"github.com/jdfalk/book-explorer/internal/models"
)

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string      `json:"id"`
	VolumeInfo *volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Description         string               `json:"description"`
	PublishedDate       string               `json:"publishedDate"`
	PageCount           int                  `json:"pageCount"`
	Categories          []string             `json:"categories"`
	AverageRating       float64              `json:"averageRating"`
	RatingsCount        int                  `json:"ratingsCount"`
	ImageLinks          *imageLinks          `json:"imageLinks"`
	PreviewLink         string               `json:"previewLink"`
	InfoLink            string               `json:"infoLink"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// normalize converts a raw volume into a Book. ok is false when the volume
// lacks an id or its volumeInfo block.
func normalize(v volume) (models.Book, bool) {
	if v.VolumeInfo == nil || strings.TrimSpace(v.ID) == "" {
		return models.Book{}, false
	}
	vi := v.VolumeInfo

	book := models.Book{
		ID:            v.ID,
		Title:         strings.TrimSpace(vi.Title),
		Authors:       nonEmpty(vi.Authors),
		Description:   vi.Description,
		PublishedDate: vi.PublishedDate,
		PageCount:     max(vi.PageCount, 0),
		Categories:    nonEmpty(vi.Categories),
		AverageRating: max(vi.AverageRating, 0),
		RatingsCount:  max(vi.RatingsCount, 0),
		PreviewLink:   vi.PreviewLink,
		InfoLink:      vi.InfoLink,
	}
	if book.Title == "" {
		book.Title = models.UnknownTitle
	}
	if len(book.Authors) == 0 {
		book.Authors = []string{models.UnknownAuthor}
	}
	if book.Categories == nil {
		book.Categories = []string{}
	}
	if vi.ImageLinks != nil {
		book.Thumbnail = vi.ImageLinks.Thumbnail
		if book.Thumbnail == "" {
			book.Thumbnail = vi.ImageLinks.SmallThumbnail
		}
	}
	if len(vi.IndustryIdentifiers) > 0 {
		book.ISBN = vi.IndustryIdentifiers[0].Identifier
	}
	return book, true
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
