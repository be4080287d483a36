package domain

import (
	"math"
	"slices"
	"time"
)

// Estimation constants for EstimatedCompletion.
const (
	DefaultPagesPerSession = 10  // Pace assumed when no sessions are recorded
	SessionsPerDay         = 1.5 // Reading sessions assumed per calendar day
	PaceWindow             = 3   // Trailing sessions averaged for the pace
)

// ReadingProgress tracks how far the user is through one book.
// Invariants: 0 <= CurrentPage <= TotalPages, and IsCompleted implies FinishDate != nil.
type ReadingProgress struct {
	BookID          string           `json:"bookId"`
	CurrentPage     int              `json:"currentPage"`
	TotalPages      int              `json:"totalPages"`
	Percentage      float64          `json:"percentage"` // [0,100]
	StartDate       *time.Time       `json:"startDate"`
	FinishDate      *time.Time       `json:"finishDate"`
	IsCompleted     bool             `json:"isCompleted"`
	LastUpdated     time.Time        `json:"lastUpdated"`
	ReadingSessions []ReadingSession `json:"readingSessions"`
}

// ReadingSession is one completed stretch of reading.
type ReadingSession struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	PagesRead       int       `json:"pagesRead"`
	DurationMinutes int       `json:"durationMinutes"`
	StartPage       int       `json:"startPage"`
	EndPage         int       `json:"endPage"`
}

// NewReadingProgress creates an empty record for a book.
func NewReadingProgress(bookID string, totalPages int, now time.Time) *ReadingProgress {
	return &ReadingProgress{
		BookID:          bookID,
		TotalPages:      max(totalPages, 0),
		LastUpdated:     now,
		ReadingSessions: []ReadingSession{},
	}
}

// UpdatePages sets the current page, clamped into [0, totalPages], and
// recomputes the derived fields. FinishDate is stamped the first time the
// book completes and is kept when the page later moves backwards.
func (p *ReadingProgress) UpdatePages(currentPage, totalPages int, now time.Time) {
	p.TotalPages = max(totalPages, 0)
	p.CurrentPage = min(max(currentPage, 0), p.TotalPages)
	p.Percentage = percentOf(p.CurrentPage, p.TotalPages)
	p.IsCompleted = p.Percentage >= 100
	p.LastUpdated = now

	if p.CurrentPage > 0 && p.StartDate == nil {
		p.StartDate = timePtr(now)
	}
	if p.IsCompleted && p.FinishDate == nil {
		p.FinishDate = timePtr(now)
	}
}

// MarkAsRead forces completion. Unlike UpdatePages it always overwrites FinishDate.
func (p *ReadingProgress) MarkAsRead(now time.Time) {
	p.CurrentPage = p.TotalPages
	p.Percentage = 100
	p.IsCompleted = true
	p.FinishDate = timePtr(now)
	if p.StartDate == nil {
		p.StartDate = timePtr(now)
	}
	p.LastUpdated = now
}

// Reset returns the book to unread and clears FinishDate. Sessions are kept.
func (p *ReadingProgress) Reset(now time.Time) {
	p.CurrentPage = 0
	p.Percentage = 0
	p.IsCompleted = false
	p.FinishDate = nil
	p.LastUpdated = now
}

// AddSession records a session ending at the current page.
func (p *ReadingProgress) AddSession(sessionID string, pagesRead, durationMinutes int, now time.Time) ReadingSession {
	s := ReadingSession{
		ID:              sessionID,
		Date:            now,
		PagesRead:       pagesRead,
		DurationMinutes: durationMinutes,
		StartPage:       p.CurrentPage - pagesRead,
		EndPage:         p.CurrentPage,
	}
	p.ReadingSessions = append(p.ReadingSessions, s)
	return s
}

// Stats aggregates the sessions of this book.
func (p *ReadingProgress) Stats(now time.Time) BookStats {
	stats := BookStats{
		BookID:        p.BookID,
		TotalSessions: len(p.ReadingSessions),
	}
	for _, s := range p.ReadingSessions {
		stats.TotalReadingTime += s.DurationMinutes
		stats.TotalPagesRead += s.PagesRead
	}
	if stats.TotalSessions > 0 {
		stats.AveragePagesPerSession = roundDiv(stats.TotalPagesRead, stats.TotalSessions)
		stats.AverageTimePerSession = roundDiv(stats.TotalReadingTime, stats.TotalSessions)
	}
	stats.EstimatedCompletion = p.EstimatedCompletion(now)
	return stats
}

// EstimatedCompletion projects when the book will be finished from the
// trailing sessions' pace. The finish date lies DaysNeeded calendar days
// ahead of now, not SessionsNeeded days; at SessionsPerDay sessions a day
// the session count overstates the wait. Returns nil when reading has not
// started, the book is complete, or the recent pace is not positive.
func (p *ReadingProgress) EstimatedCompletion(now time.Time) *Estimate {
	if p.Percentage == 0 || p.IsCompleted {
		return nil
	}

	pace := float64(DefaultPagesPerSession)
	if n := len(p.ReadingSessions); n > 0 {
		recent := p.ReadingSessions[max(n-PaceWindow, 0):]
		total := 0
		for _, s := range recent {
			total += s.PagesRead
		}
		pace = float64(total) / float64(len(recent))
	}
	if pace <= 0 {
		return nil
	}

	remaining := p.TotalPages - p.CurrentPage
	sessions := int(math.Ceil(float64(remaining) / pace))
	days := int(math.Ceil(float64(sessions) / SessionsPerDay))
	return &Estimate{
		SessionsNeeded:      sessions,
		DaysNeeded:          days,
		EstimatedFinishDate: now.AddDate(0, 0, days),
	}
}

// Clone returns a deep copy.
func (p *ReadingProgress) Clone() *ReadingProgress {
	if p == nil {
		return nil
	}
	c := *p
	if p.StartDate != nil {
		c.StartDate = timePtr(*p.StartDate)
	}
	if p.FinishDate != nil {
		c.FinishDate = timePtr(*p.FinishDate)
	}
	c.ReadingSessions = slices.Clone(p.ReadingSessions)
	if c.ReadingSessions == nil {
		c.ReadingSessions = []ReadingSession{}
	}
	return &c
}

// Normalize repairs a record decoded from storage so the invariants hold.
func (p *ReadingProgress) Normalize() {
	if p.ReadingSessions == nil {
		p.ReadingSessions = []ReadingSession{}
	}
	p.TotalPages = max(p.TotalPages, 0)
	p.CurrentPage = min(max(p.CurrentPage, 0), p.TotalPages)
	if p.IsCompleted && p.FinishDate == nil {
		p.FinishDate = timePtr(p.LastUpdated)
	}
	p.Percentage = min(max(p.Percentage, 0), 100)
}

func percentOf(page, total int) float64 {
	if total <= 0 {
		return 0
	}
	return min(float64(page)/float64(total)*100, 100)
}

func roundDiv(a, b int) int {
	return int(math.Round(float64(a) / float64(b)))
}

func timePtr(t time.Time) *time.Time {
	return &t
}
