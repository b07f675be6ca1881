package domain

import "time"

// KeywordSubscription binds an owner (Telegram chat) to a tracked keyword.
// (OwnerID, Keyword) is unique. Aliases are the translated variants used as
// OR-matched candidates; an empty set means expansion has not run yet.
type KeywordSubscription struct {
	ID        int64
	OwnerID   int64
	Keyword   string
	Aliases   []string
	CreatedAt time.Time
}

// Candidates returns the keyword plus its aliases, keyword first, without
// duplicating the keyword when it already appears in the alias set.
func (k KeywordSubscription) Candidates() []string {
	out := make([]string, 0, len(k.Aliases)+1)
	out = append(out, k.Keyword)
	for _, a := range k.Aliases {
		if a != k.Keyword {
			out = append(out, a)
		}
	}
	return out
}
