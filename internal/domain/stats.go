package domain

import "time"

// TopN is the length of every ranked list in LibraryStats.
const TopN = 5

// LibraryStats is an aggregate view over the whole library.
type LibraryStats struct {
	TotalBooks      int            `json:"totalBooks"`
	TotalShelves    int            `json:"totalShelves"`
	BooksByShelf    map[string]int `json:"booksByShelf"` // Keyed by shelf name
	RecentlyAdded   []*Book        `json:"recentlyAdded"`
	MostReadAuthors []AuthorCount  `json:"mostReadAuthors"`
	PopularGenres   []GenreCount   `json:"popularGenres"`
}

// AuthorCount pairs an author with the number of library books they wrote.
type AuthorCount struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// GenreCount pairs a category with the number of library books in it.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// BookStats aggregates the reading sessions of a single book.
type BookStats struct {
	BookID                 string    `json:"bookId"`
	TotalSessions          int       `json:"totalSessions"`
	TotalReadingTime       int       `json:"totalReadingTime"` // Minutes
	TotalPagesRead         int       `json:"totalPagesRead"`
	AveragePagesPerSession int       `json:"averagePagesPerSession"`
	AverageTimePerSession  int       `json:"averageTimePerSession"`
	EstimatedCompletion    *Estimate `json:"estimatedCompletion"`
}

// Estimate projects when an in-progress book will be finished.
type Estimate struct {
	SessionsNeeded      int       `json:"sessionsNeeded"`
	DaysNeeded          int       `json:"daysNeeded"`
	EstimatedFinishDate time.Time `json:"estimatedFinishDate"`
}

// GlobalStats aggregates reading across every tracked book.
type GlobalStats struct {
	TotalBooks             int `json:"totalBooks"`
	BooksCompleted         int `json:"booksCompleted"`
	BooksInProgress        int `json:"booksInProgress"`
	TotalSessions          int `json:"totalSessions"`
	TotalReadingTime       int `json:"totalReadingTime"`
	TotalPagesRead         int `json:"totalPagesRead"`
	AveragePagesPerSession int `json:"averagePagesPerSession"`
	AverageTimePerSession  int `json:"averageTimePerSession"`
	ReadingStreak          int `json:"readingStreak"`
}

// DailyReading is one day bucket of reading history.
type DailyReading struct {
	Date     string `json:"date"` // YYYY-MM-DD, local time
	Pages    int    `json:"pages"`
	Minutes  int    `json:"minutes"`
	Sessions int    `json:"sessions"`
}
