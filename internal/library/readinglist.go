// file: internal/library/readinglist.go
// version: 1.1.0
// guid: 36054960-4929-4ec4-a0a6-2bbc18b6a065

package library

import (
	"slices"
	"strings"

	"github.com/jdfalk/book-explorer/internal/metrics"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/realtime"
)

// Add appends book with status want-to-read. Adding an id that is already
// present changes nothing and reports added=false.
func (l *Library) Add(book models.Book) (added bool, err error) {
	if strings.TrimSpace(book.ID) == "" {
		return false, ErrMissingBookID
	}

	l.mu.Lock()
	if l.indexOf(book.ID) >= 0 {
		l.mu.Unlock()
		return false, nil
	}
	l.readingList = append(l.readingList, models.NewReadingListEntry(book, l.now()))
	size := len(l.readingList)
	err = l.persist(KeyReadingList, l.readingList)
	l.mu.Unlock()

	metrics.SetReadingListBooks(size)
	l.publish(realtime.EventReadingListResized, KeyReadingList, map[string]any{"id": book.ID, "size": size})
	return true, err
}

// Remove deletes the entry with id, reporting whether one existed.
func (l *Library) Remove(id string) (removed bool, err error) {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return false, nil
	}
	l.readingList = slices.Delete(l.readingList, i, i+1)
	size := len(l.readingList)
	err = l.persist(KeyReadingList, l.readingList)
	l.mu.Unlock()

	metrics.SetReadingListBooks(size)
	l.publish(realtime.EventReadingListResized, KeyReadingList, map[string]any{"id": id, "size": size})
	return true, err
}

// UpdateStatus sets the reading status and stamps statusUpdated. An id that
// is not in the reading list is ignored.
func (l *Library) UpdateStatus(id string, status models.ReadingStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return nil
	}
	now := l.now()
	l.readingList[i].ReadingStatus = status
	l.readingList[i].StatusUpdated = &now
	err := l.persist(KeyReadingList, l.readingList)
	l.mu.Unlock()

	l.publish(realtime.EventReadingListUpdated, KeyReadingList, map[string]any{"id": id, "status": string(status)})
	return err
}

// UpdateProgress applies a reading-progress change and returns the updated
// entry.
func (l *Library) UpdateProgress(id string, u models.ProgressUpdate) (models.ReadingListEntry, error) {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return models.ReadingListEntry{}, ErrNotInReadingList
	}
	l.readingList[i].ApplyProgress(u, l.now())
	entry := cloneEntry(l.readingList[i])
	err := l.persist(KeyReadingList, l.readingList)
	l.mu.Unlock()

	l.publish(realtime.EventReadingListUpdated, KeyReadingList, map[string]any{"id": id, "page": entry.CurrentPage})
	return entry, err
}

// SetReview stores free-text review for an entry; empty text clears it.
func (l *Library) SetReview(id, text string) error {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return ErrNotInReadingList
	}
	l.readingList[i].Review = strings.TrimSpace(text)
	err := l.persist(KeyReadingList, l.readingList)
	l.mu.Unlock()

	l.publish(realtime.EventReadingListUpdated, KeyReadingList, map[string]any{"id": id})
	return err
}

// ReadingList returns a copy of the reading list in insertion order.
func (l *Library) ReadingList() []models.ReadingListEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneList(l.readingList)
}

// Entry returns the reading-list entry for id.
func (l *Library) Entry(id string) (models.ReadingListEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return cloneEntry(l.readingList[i]), true
	}
	return models.ReadingListEntry{}, false
}

// Contains reports whether id is in the reading list.
func (l *Library) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexOf(id) >= 0
}

func (l *Library) indexOf(id string) int {
	return slices.IndexFunc(l.readingList, func(e models.ReadingListEntry) bool { return e.ID == id })
}

func cloneEntry(e models.ReadingListEntry) models.ReadingListEntry {
	e.Authors = slices.Clone(e.Authors)
	e.Categories = slices.Clone(e.Categories)
	return e
}

func cloneList(in []models.ReadingListEntry) []models.ReadingListEntry {
	out := make([]models.ReadingListEntry, len(in))
	for i, e := range in {
		out[i] = cloneEntry(e)
	}
	return out
}
