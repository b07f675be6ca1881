package domain

import (
	"testing"
	"time"
)

func TestSourceDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		src  Source
		want bool
	}{
		{
			name: "never fetched",
			src:  Source{Active: true, FetchInterval: time.Hour},
			want: true,
		},
		{
			name: "interval elapsed",
			src:  Source{Active: true, FetchInterval: time.Hour, LastFetched: now.Add(-2 * time.Hour)},
			want: true,
		},
		{
			name: "interval exactly elapsed",
			src:  Source{Active: true, FetchInterval: time.Hour, LastFetched: now.Add(-time.Hour)},
			want: true,
		},
		{
			name: "fetched recently",
			src:  Source{Active: true, FetchInterval: 2 * time.Hour, LastFetched: now.Add(-30 * time.Minute)},
			want: false,
		},
		{
			name: "inactive",
			src:  Source{Active: false, FetchInterval: time.Hour},
			want: false,
		},
	}

	for _, tc := range cases {
		if got := tc.src.Due(now); got != tc.want {
			t.Errorf("%s: Due = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSubscriptionCandidates(t *testing.T) {
	t.Parallel()

	sub := KeywordSubscription{
		Keyword: "neft",
		Aliases: []string{"neft", "oil", "нефть"},
	}
	got := sub.Candidates()
	want := []string{"neft", "oil", "нефть"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMatchTierConfidence(t *testing.T) {
	t.Parallel()

	if TierHeading.Confidence() != 1.0 {
		t.Fatalf("heading tier confidence = %v", TierHeading.Confidence())
	}
	if TierBody.Confidence() != 0.95 {
		t.Fatalf("body tier confidence = %v", TierBody.Confidence())
	}
}
