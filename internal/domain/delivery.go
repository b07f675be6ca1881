package domain

import "time"

// MatchTier is a discrete confidence bucket, not a continuous rank.
type MatchTier string

const (
	TierHeading MatchTier = "exact-heading"
	TierBody    MatchTier = "body"
)

// Confidence returns the fixed score assigned to the tier.
func (t MatchTier) Confidence() float64 {
	if t == TierHeading {
		return 1.0
	}
	return 0.95
}

// MatchResult is the ephemeral outcome of evaluating one subscription
// against one article. The recorded keyword is the subscriber's own term,
// never the alias that happened to match.
type MatchResult struct {
	OwnerID  int64
	Keyword  string
	Tier     MatchTier
	Evidence string
}

// DeliveryRecord is the persisted at-most-once marker for an
// (owner, article) pair.
type DeliveryRecord struct {
	OwnerID   int64
	ArticleID int64
	Keyword   string
	Score     float64
	SentAt    time.Time
}

// DeliveryStatus classifies the outcome of a delivery attempt.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDuplicate DeliveryStatus = "duplicate"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryOutcome is an explicit result value; transport failures after
// retry exhaustion surface here instead of as pipeline-fatal errors.
type DeliveryOutcome struct {
	Status DeliveryStatus
	Err    error
}
