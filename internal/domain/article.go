package domain

import "time"

// FetchStatus enumerates the lifecycle of a source's last fetch attempt.
type FetchStatus string

const (
	FetchPending FetchStatus = "pending"
	FetchSuccess FetchStatus = "success"
	FetchFailed  FetchStatus = "failed"
)

// Source is a news website that is fetched automatically on its own cadence.
type Source struct {
	ID            int64
	Name          string
	URL           string
	Active        bool
	FetchInterval time.Duration
	LastFetched   time.Time
	LastStatus    FetchStatus
	LastError     string
	ArticleCount  int64
	CreatedAt     time.Time
}

// Due reports whether the source should be fetched at the given moment.
// A source that has never been fetched is always due.
func (s Source) Due(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.LastFetched.IsZero() {
		return true
	}
	return !now.Before(s.LastFetched.Add(s.FetchInterval))
}

// Article is a normalized, admitted document. CanonicalURL is the sole
// deduplication identity and is immutable once stored.
type Article struct {
	ID           int64
	SourceID     int64
	Title        string
	Content      string
	Description  string
	CanonicalURL string
	ArticleLink  string
	Category     string
	PublishDate  *time.Time
	Author       string
	CreatedAt    time.Time
}

// RawDocument is the untyped output of the extraction collaborator before
// normalization.
type RawDocument struct {
	Title       string
	Body        string
	Description string
	ResolvedURL string
}
