package service

import (
	"math"
	"time"

	"github.com/bookwise/bookwise/internal/domain"
)

// MaxStreakDays bounds the backwards walk of ReadingStreak.
const MaxStreakDays = 365

const dayLayout = "2006-01-02"

// BookStats aggregates the sessions of one book. An untracked book yields zero stats.
func (s *ProgressService) BookStats(bookID string) domain.BookStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[bookID]
	if !ok {
		return domain.BookStats{BookID: bookID}
	}
	return p.Stats(s.now())
}

// GlobalStats aggregates reading across every tracked book.
func (s *ProgressService) GlobalStats() domain.GlobalStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.GlobalStats{TotalBooks: len(s.records)}
	for _, p := range s.records {
		switch {
		case p.IsCompleted:
			stats.BooksCompleted++
		case p.CurrentPage > 0:
			stats.BooksInProgress++
		}
		for _, rs := range p.ReadingSessions {
			stats.TotalSessions++
			stats.TotalReadingTime += rs.DurationMinutes
			stats.TotalPagesRead += rs.PagesRead
		}
	}
	if stats.TotalSessions > 0 {
		n := float64(stats.TotalSessions)
		stats.AveragePagesPerSession = int(math.Round(float64(stats.TotalPagesRead) / n))
		stats.AverageTimePerSession = int(math.Round(float64(stats.TotalReadingTime) / n))
	}
	stats.ReadingStreak = s.readingStreak()
	return stats
}

// ReadingStreak counts consecutive local calendar days, ending today, with at
// least one recorded session. A day without reading today means no streak.
func (s *ProgressService) ReadingStreak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readingStreak()
}

func (s *ProgressService) readingStreak() int {
	days := make(map[string]struct{})
	for _, rs := range s.allSessions() {
		days[dayKey(rs.Date)] = struct{}{}
	}

	streak := 0
	day := s.now().Local()
	for range MaxStreakDays {
		if _, ok := days[dayKey(day)]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// ReadingHistory buckets sessions per local calendar day for the last days
// days, oldest first. Days without reading are included with zero values.
func (s *ProgressService) ReadingHistory(days int) []domain.DailyReading {
	if days <= 0 {
		return []domain.DailyReading{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]domain.DailyReading, days)
	index := make(map[string]int, days)
	today := s.now().Local()
	for i := range days {
		key := dayKey(today.AddDate(0, 0, i-days+1))
		history[i].Date = key
		index[key] = i
	}

	for _, rs := range s.allSessions() {
		i, ok := index[dayKey(rs.Date)]
		if !ok {
			continue
		}
		history[i].Pages += rs.PagesRead
		history[i].Minutes += rs.DurationMinutes
		history[i].Sessions++
	}
	return history
}

func dayKey(t time.Time) string {
	return t.Local().Format(dayLayout)
}
