// file: internal/models/book.go
// version: 1.0.0
// guid: 9ee91026-2ba7-4225-a993-2c5e5bf384fc

package models

import (
	"fmt"
	"time"
)

// Placeholders used when the catalog omits a title or author list.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// Book is a normalized catalog record. ID is the identity across every set.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
	Categories    []string `json:"categories"`
	AverageRating float64  `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	PreviewLink   string   `json:"previewLink"`
	InfoLink      string   `json:"infoLink"`
	ISBN          string   `json:"isbn"`

	// Set only on books returned inside a recommendation result.
	RecommendationReason string `json:"recommendationReason,omitempty"`
}

// WithReason returns a copy of b annotated with a recommendation reason.
func (b Book) WithReason(reason string) Book {
	b.RecommendationReason = reason
	return b
}

// ReadingStatus is the list-membership state of a reading-list entry.
type ReadingStatus string

const (
	StatusWantToRead       ReadingStatus = "want-to-read"
	StatusCurrentlyReading ReadingStatus = "currently-reading"
	StatusFinished         ReadingStatus = "finished"
)

// Valid reports whether s is one of the three known statuses.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusCurrentlyReading, StatusFinished:
		return true
	}
	return false
}

// StatusOption pairs a status with its display label.
type StatusOption struct {
	Value ReadingStatus
	Label string
}

// ReadingStatusOptions lists the statuses in display order.
var ReadingStatusOptions = []StatusOption{
	{Value: StatusWantToRead, Label: "Want to Read"},
	{Value: StatusCurrentlyReading, Label: "Currently Reading"},
	{Value: StatusFinished, Label: "Finished"},
}

// ParseReadingStatus validates a user supplied status string.
func ParseReadingStatus(s string) (ReadingStatus, error) {
	status := ReadingStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown reading status %q", s)
	}
	return status, nil
}

// ReadingListEntry is a Book plus reading-list metadata.
type ReadingListEntry struct {
	Book

	ReadingStatus ReadingStatus `json:"readingStatus"`
	DateAdded     time.Time     `json:"dateAdded"`
	StatusUpdated *time.Time    `json:"statusUpdated,omitempty"`
	Review        string        `json:"review,omitempty"`

	CurrentPage     int        `json:"currentPage,omitempty"`
	ProgressPercent float64    `json:"progressPercent,omitempty"`
	DailyGoal       int        `json:"dailyGoal,omitempty"`
	LastUpdated     *time.Time `json:"lastUpdated,omitempty"`
}

// NewReadingListEntry wraps book with the default status and dateAdded stamp.
func NewReadingListEntry(book Book, now time.Time) ReadingListEntry {
	book.RecommendationReason = ""
	return ReadingListEntry{
		Book:          book,
		ReadingStatus: StatusWantToRead,
		DateAdded:     now,
	}
}

// Stats is the derived summary of the reading list and ratings.
type Stats struct {
	TotalBooks       int     `json:"totalBooks"`
	TotalRated       int     `json:"totalRated"`
	FinishedBooks    int     `json:"finishedBooks"`
	CurrentlyReading int     `json:"currentlyReading"`
	AverageRating    float64 `json:"averageRating"`
}

// DetailedStats extends Stats with page and genre information.
type DetailedStats struct {
	Stats
	TotalPages           int     `json:"totalPages"`
	EstimatedReadingTime string  `json:"estimatedReadingTime"`
	FavoriteGenre        string  `json:"favoriteGenre"`
	ReadingGoal          int     `json:"readingGoal"`
	GoalProgressPercent  float64 `json:"goalProgressPercent"`
}
