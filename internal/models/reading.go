// file: internal/models/reading.go
// version: 1.0.0
// guid: 2bc2ad49-2ea8-4389-b60f-140bf4a69577

package models

import (
	"fmt"
	"math"
	"time"
)

const (
	wordsPerPage     = 250
	wordsPerMinute   = 200
	DefaultDailyGoal = 20
)

// ReadingTime estimates how long pageCount pages take to read.
func ReadingTime(pageCount int) string {
	if pageCount <= 0 {
		return "Unknown"
	}
	totalMinutes := float64(pageCount*wordsPerPage) / wordsPerMinute
	if totalMinutes < 60 {
		return fmt.Sprintf("%d min", int(math.Round(totalMinutes)))
	}
	hours := int(totalMinutes / 60)
	minutes := int(math.Round(math.Mod(totalMinutes, 60)))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	if minutes > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dh", hours)
}

// Difficulty buckets a book by length.
func Difficulty(pageCount int) string {
	switch {
	case pageCount <= 0:
		return "Unknown"
	case pageCount < 200:
		return "Quick"
	case pageCount < 400:
		return "Standard"
	case pageCount < 600:
		return "Long"
	default:
		return "Epic"
	}
}

// ProgressUpdate carries one reading-progress change. Page takes precedence
// over Percent when both are set.
type ProgressUpdate struct {
	Page      *int
	Percent   *float64
	DailyGoal *int
}

// ApplyProgress updates page/percent on e, keeping the two consistent with
// the book's page count.
func (e *ReadingListEntry) ApplyProgress(u ProgressUpdate, now time.Time) {
	total := e.PageCount
	switch {
	case u.Page != nil:
		page := max(0, *u.Page)
		if total > 0 {
			page = min(page, total)
		} else {
			page = 0
		}
		e.CurrentPage = page
		if total > 0 {
			e.ProgressPercent = float64(page) / float64(total) * 100
		} else {
			e.ProgressPercent = 0
		}
	case u.Percent != nil:
		pct := math.Max(0, math.Min(*u.Percent, 100))
		e.ProgressPercent = pct
		if total > 0 {
			e.CurrentPage = int(math.Round(pct / 100 * float64(total)))
		} else {
			e.CurrentPage = 0
		}
	}
	if u.DailyGoal != nil && *u.DailyGoal > 0 {
		e.DailyGoal = *u.DailyGoal
	}
	e.LastUpdated = &now
}

// DaysToFinish returns the days left at the entry's daily goal
// (DefaultDailyGoal pages when unset).
func (e ReadingListEntry) DaysToFinish() int {
	goal := e.DailyGoal
	if goal <= 0 {
		goal = DefaultDailyGoal
	}
	left := max(0, e.PageCount-e.CurrentPage)
	return int(math.Ceil(float64(left) / float64(goal)))
}
