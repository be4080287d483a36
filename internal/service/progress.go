package service

import (
	"cmp"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookwise/bookwise/internal/domain"
	"github.com/bookwise/bookwise/internal/id"
	"github.com/bookwise/bookwise/internal/store"
)

// SessionToken identifies an in-flight reading session.
// Tokens live only in memory; a restart discards unfinished sessions.
type SessionToken string

// SessionResult describes a finished session.
type SessionResult struct {
	BookID          string `json:"bookId"`
	PagesRead       int    `json:"pagesRead"`
	DurationMinutes int    `json:"durationMinutes"`
	Recorded        bool   `json:"recorded"` // False when no forward progress was made
}

type activeSession struct {
	bookID    string
	startPage int
	startedAt time.Time
}

// ProgressService owns the reading progress of every tracked book.
type ProgressService struct {
	mu       sync.Mutex
	store    DocumentStore
	logger   *slog.Logger
	now      func() time.Time
	records  map[string]*domain.ReadingProgress
	sessions map[SessionToken]activeSession
}

// NewProgressService loads the progress document.
func NewProgressService(docs DocumentStore, logger *slog.Logger) *ProgressService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &ProgressService{
		store:    docs,
		logger:   logger,
		now:      time.Now,
		records:  make(map[string]*domain.ReadingProgress),
		sessions: make(map[SessionToken]activeSession),
	}
	s.load()
	return s
}

func (s *ProgressService) load() {
	var doc map[string]*domain.ReadingProgress
	if !s.store.Load(store.ProgressKey, &doc) {
		return
	}
	for bookID, p := range doc {
		if p == nil {
			continue
		}
		if p.BookID == "" {
			p.BookID = bookID
		}
		p.Normalize()
		s.records[p.BookID] = p
	}
	s.logger.Info("reading progress loaded", "books", len(s.records))
}

// persist writes every record. Callers must hold s.mu.
func (s *ProgressService) persist() {
	s.store.Save(store.ProgressKey, s.records)
}

// record returns the live record for a book, creating it if needed.
// Callers must hold s.mu.
func (s *ProgressService) record(bookID string) (*domain.ReadingProgress, bool) {
	if p, ok := s.records[bookID]; ok {
		return p, false
	}
	p := domain.NewReadingProgress(bookID, 0, s.now())
	s.records[bookID] = p
	return p, true
}

// InitializeProgress creates the record for a book. For an existing record a
// positive totalPages replaces the stored total.
func (s *ProgressService) InitializeProgress(bookID string, totalPages int) *domain.ReadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, created := s.record(bookID)
	switch {
	case created:
		p.TotalPages = max(totalPages, 0)
	case totalPages > 0 && totalPages != p.TotalPages:
		p.UpdatePages(p.CurrentPage, totalPages, s.now())
	default:
		return p.Clone()
	}
	s.persist()
	return p.Clone()
}

// Progress returns the record for a book, creating an empty one if absent.
func (s *ProgressService) Progress(bookID string) *domain.ReadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, created := s.record(bookID)
	if created {
		s.persist()
	}
	return p.Clone()
}

// AllProgress returns every record ordered by book id.
func (s *ProgressService) AllProgress() []*domain.ReadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := slices.Sorted(maps.Keys(s.records))
	out := make([]*domain.ReadingProgress, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.records[k].Clone())
	}
	return out
}

// UpdatePageProgress moves the current page, clamped into [0, totalPages].
// A totalPages of zero or less keeps the stored total.
func (s *ProgressService) UpdatePageProgress(bookID string, currentPage, totalPages int) *domain.ReadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, _ := s.record(bookID)
	s.updatePages(p, currentPage, totalPages)
	return p.Clone()
}

// UpdatePercentageProgress converts percent to a page of the stored total.
// It does nothing while the total is unknown.
func (s *ProgressService) UpdatePercentageProgress(bookID string, percent float64) *domain.ReadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, created := s.record(bookID)
	if p.TotalPages == 0 {
		if created {
			s.persist()
		}
		return p.Clone()
	}
	page := int(math.Round(percent / 100 * float64(p.TotalPages)))
	s.updatePages(p, page, p.TotalPages)
	return p.Clone()
}

// updatePages applies a page update and persists. Callers must hold s.mu.
func (s *ProgressService) updatePages(p *domain.ReadingProgress, currentPage, totalPages int) {
	if totalPages <= 0 {
		totalPages = p.TotalPages
	}
	wasCompleted := p.IsCompleted
	p.UpdatePages(currentPage, totalPages, s.now())
	s.persist()

	if p.IsCompleted && !wasCompleted {
		s.logger.Info("book completed", "book_id", p.BookID)
	}
}

// StartSession captures the current page and start time of a reading session.
func (s *ProgressService) StartSession(bookID string) SessionToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, created := s.record(bookID)
	if created {
		s.persist()
	}
	token := SessionToken("session_" + uuid.NewString())
	s.sessions[token] = activeSession{
		bookID:    bookID,
		startPage: p.CurrentPage,
		startedAt: s.now(),
	}

	s.logger.Debug("reading session started", "book_id", bookID, "start_page", p.CurrentPage)
	return token
}

// FinishSession ends a session. A session is recorded only when the current
// page moved forward. Returns false for an unknown token.
func (s *ProgressService) FinishSession(token SessionToken) (SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.sessions[token]
	if !ok {
		return SessionResult{}, false
	}
	delete(s.sessions, token)

	p, _ := s.record(active.bookID)
	now := s.now()
	result := SessionResult{
		BookID:          active.bookID,
		PagesRead:       p.CurrentPage - active.startPage,
		DurationMinutes: int(math.Round(now.Sub(active.startedAt).Minutes())),
	}
	if result.PagesRead <= 0 {
		s.logger.Debug("discarding reading session without progress", "book_id", active.bookID)
		return result, true
	}

	sessionID, err := id.Generate("session")
	if err != nil {
		s.logger.Error("failed to generate session id", "book_id", active.bookID, "error", err)
		return result, true
	}
	p.AddSession(sessionID, result.PagesRead, result.DurationMinutes, now)
	p.LastUpdated = now
	s.persist()
	result.Recorded = true

	s.logger.Info("reading session recorded",
		"book_id", active.bookID,
		"pages_read", result.PagesRead,
		"duration_minutes", result.DurationMinutes,
	)
	return result, true
}

// MarkAsRead completes the book and stamps a fresh finish date.
func (s *ProgressService) MarkAsRead(bookID string) *domain.ReadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, _ := s.record(bookID)
	p.MarkAsRead(s.now())
	s.persist()

	s.logger.Info("book marked as read", "book_id", bookID)
	return p.Clone()
}

// ResetProgress returns the book to unread and clears its finish date.
func (s *ProgressService) ResetProgress(bookID string) *domain.ReadingProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, _ := s.record(bookID)
	p.Reset(s.now())
	s.persist()
	return p.Clone()
}

// BookRemoved drops the progress record and any open sessions of a book.
func (s *ProgressService) BookRemoved(bookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, active := range s.sessions {
		if active.bookID == bookID {
			delete(s.sessions, token)
		}
	}
	if _, ok := s.records[bookID]; !ok {
		return
	}
	delete(s.records, bookID)
	s.persist()

	s.logger.Info("reading progress removed", "book_id", bookID)
}

// allSessions returns every recorded session ordered by date. Callers must hold s.mu.
func (s *ProgressService) allSessions() []domain.ReadingSession {
	var all []domain.ReadingSession
	for _, p := range s.records {
		all = append(all, p.ReadingSessions...)
	}
	slices.SortFunc(all, func(a, b domain.ReadingSession) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return all
}
