package index

import "github.com/poiesic/parcelsuggest/core"

// Tier identifies which matching strategy served a query.
type Tier int

const (
	// TierNone means the query was rejected (empty or too long).
	TierNone Tier = iota
	// TierSingleChar scans for token prefixes and parcel ID containment.
	TierSingleChar
	// TierTwoChar scans for substring containment.
	TierTwoChar
	// TierApproximate runs the scored approximate matcher.
	TierApproximate
)

func (t Tier) String() string {
	switch t {
	case TierSingleChar:
		return "single-char"
	case TierTwoChar:
		return "two-char"
	case TierApproximate:
		return "approximate"
	default:
		return "none"
	}
}

// SearchMonitor provides hooks to observe a search.
// Implement this interface to trace how a query was answered.
type SearchMonitor interface {
	Start(query string, tier Tier)
	Candidate(pairing core.ParcelPairing, score float64, kept bool)
	AfterTier(tier Tier, count int)
	AfterExactPromotion(promoted int)
	Finish(results []core.Suggestion)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Tier)                           {}
func (n *noopMonitor) Candidate(_ core.ParcelPairing, _ float64, _ bool) {}
func (n *noopMonitor) AfterTier(_ Tier, _ int)                          {}
func (n *noopMonitor) AfterExactPromotion(_ int)                        {}
func (n *noopMonitor) Finish(_ []core.Suggestion)                       {}
