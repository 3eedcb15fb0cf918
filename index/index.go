package index

import (
	"container/heap"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Defaults for the tier limits and thresholds.
const (
	DefaultShortQueryLimit   = 15
	DefaultCandidateLimit    = 20
	DefaultShortThreshold    = 0.7
	DefaultThreshold         = 0.6
	DefaultMaxQueryLength    = 200
	shortThresholdMaxLength  = 4
	approximateMinimumLength = 3
)

// Index answers suggestion queries over one pairing snapshot.
type Index struct {
	pairings    []core.ParcelPairing
	entries     []entry
	exact       *patricia.Trie // normalized parcel ID or address -> []int positions
	fingerprint core.Fingerprint

	shortQueryLimit int
	candidateLimit  int
	shortThreshold  float64
	threshold       float64
	maxQueryLength  int
	logger          *slog.Logger
}

// entry holds the normalized forms of one pairing.
type entry struct {
	address   string
	parcelID  string
	tokens    []string
	addrRunes []rune
	idRunes   []rune
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// WithShortQueryLimit caps results of the one- and two-character tiers.
// Default is 15.
func WithShortQueryLimit(limit int) Option {
	return func(ix *Index) error {
		if limit < 1 {
			return fmt.Errorf("%w: short query limit %d", ErrInvalidOption, limit)
		}
		ix.shortQueryLimit = limit
		return nil
	}
}

// WithCandidateLimit sets how many approximate candidates are considered.
// Default is 20.
func WithCandidateLimit(limit int) Option {
	return func(ix *Index) error {
		if limit < 1 {
			return fmt.Errorf("%w: candidate limit %d", ErrInvalidOption, limit)
		}
		ix.candidateLimit = limit
		return nil
	}
}

// WithThresholds sets the score cut-offs for queries of length <= 4 and longer.
// Defaults are 0.7 and 0.6.
func WithThresholds(short, long float64) Option {
	return func(ix *Index) error {
		if short <= 0 || short > 1 || long <= 0 || long > 1 {
			return fmt.Errorf("%w: thresholds %v/%v", ErrInvalidOption, short, long)
		}
		ix.shortThreshold = short
		ix.threshold = long
		return nil
	}
}

// WithMaxQueryLength rejects longer queries outright. Default is 200.
func WithMaxQueryLength(n int) Option {
	return func(ix *Index) error {
		if n < 1 {
			return fmt.Errorf("%w: max query length %d", ErrInvalidOption, n)
		}
		ix.maxQueryLength = n
		return nil
	}
}

// Build indexes pairings. The slice is retained and must not be modified.
func Build(pairings []core.ParcelPairing, opts ...Option) (*Index, error) {
	ix := &Index{
		pairings:        pairings,
		entries:         make([]entry, len(pairings)),
		exact:           patricia.NewTrie(),
		shortQueryLimit: DefaultShortQueryLimit,
		candidateLimit:  DefaultCandidateLimit,
		shortThreshold:  DefaultShortThreshold,
		threshold:       DefaultThreshold,
		maxQueryLength:  DefaultMaxQueryLength,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	for i, p := range pairings {
		address := Normalize(p.FullAddress)
		parcelID := Normalize(p.ParcelID)
		ix.entries[i] = entry{
			address:   address,
			parcelID:  parcelID,
			tokens:    strings.Fields(address),
			addrRunes: []rune(address),
			idRunes:   []rune(parcelID),
		}
		ix.addExactKey(parcelID, i)
		if address != parcelID {
			ix.addExactKey(address, i)
		}
	}
	ix.fingerprint = core.FingerprintPairings(pairings)

	return ix, nil
}

func (ix *Index) addExactKey(key string, pos int) {
	if key == "" {
		return
	}
	k := patricia.Prefix(key)
	if item := ix.exact.Get(k); item != nil {
		ix.exact.Set(k, append(item.([]int), pos))
		return
	}
	ix.exact.Insert(k, []int{pos})
}

// Len returns the number of indexed pairings.
func (ix *Index) Len() int {
	return len(ix.pairings)
}

// Pairings returns the indexed snapshot in its original order.
// The slice is shared and must not be modified.
func (ix *Index) Pairings() []core.ParcelPairing {
	return ix.pairings
}

// Fingerprint identifies the snapshot the index was built from.
func (ix *Index) Fingerprint() core.Fingerprint {
	return ix.fingerprint
}

// Search returns suggestions for query using the default thresholds.
func (ix *Index) Search(query string) []core.Suggestion {
	return ix.search(query, 0, false, nil)
}

// SearchWithThreshold overrides the approximate score cut-off for this query.
func (ix *Index) SearchWithThreshold(query string, threshold float64) []core.Suggestion {
	return ix.search(query, threshold, true, nil)
}

// SearchWithMonitor searches with the default thresholds and reports each
// stage to monitor.
func (ix *Index) SearchWithMonitor(query string, monitor SearchMonitor) []core.Suggestion {
	return ix.search(query, 0, false, monitor)
}

func (ix *Index) search(query string, override float64, hasOverride bool, monitor SearchMonitor) []core.Suggestion {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	q := Normalize(query)
	n := utf8.RuneCountInString(q)
	if n == 0 || n > ix.maxQueryLength {
		monitor.Start(q, TierNone)
		monitor.Finish(nil)
		return []core.Suggestion{}
	}

	var (
		tier    Tier
		matched []int
	)
	switch {
	case n == 1:
		tier = TierSingleChar
		monitor.Start(q, tier)
		matched = ix.scanSingleChar(q)
	case n < approximateMinimumLength:
		tier = TierTwoChar
		monitor.Start(q, tier)
		matched = ix.scanSubstring(q)
	default:
		tier = TierApproximate
		monitor.Start(q, tier)
		threshold := ix.threshold
		if n <= shortThresholdMaxLength {
			threshold = ix.shortThreshold
		}
		if hasOverride {
			threshold = override
		}
		matched = ix.approximate(q, threshold, monitor)
	}
	monitor.AfterTier(tier, len(matched))

	exact := ix.exactMatches(q)
	monitor.AfterExactPromotion(len(exact))

	results := ix.merge(exact, matched)
	monitor.Finish(results)
	return results
}

// scanSingleChar accepts a pairing when an address token starts with q or the
// parcel ID contains it. Scans in snapshot order and stops at the cap.
func (ix *Index) scanSingleChar(q string) []int {
	var matched []int
	for i := range ix.entries {
		e := &ix.entries[i]
		if strings.Contains(e.parcelID, q) || hasTokenPrefix(e.tokens, q) {
			matched = append(matched, i)
			if len(matched) >= ix.shortQueryLimit {
				break
			}
		}
	}
	return matched
}

// scanSubstring accepts a pairing when its address or parcel ID contains q.
func (ix *Index) scanSubstring(q string) []int {
	var matched []int
	for i := range ix.entries {
		e := &ix.entries[i]
		if strings.Contains(e.address, q) || strings.Contains(e.parcelID, q) {
			matched = append(matched, i)
			if len(matched) >= ix.shortQueryLimit {
				break
			}
		}
	}
	return matched
}

func hasTokenPrefix(tokens []string, q string) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t, q) {
			return true
		}
	}
	return false
}

// approximate returns up to candidateLimit positions ordered by score, keeping
// those strictly under threshold. A failure inside the matcher is logged and
// treated as no results.
func (ix *Index) approximate(q string, threshold float64, monitor SearchMonitor) (matched []int) {
	defer func() {
		if r := recover(); r != nil {
			ix.logger.Error("approximate search failed", "query", q, "err", fmt.Errorf("%w: %v", ErrSearchFailed, r))
			matched = nil
		}
	}()

	qr := []rune(q)
	column := make([]int, len(qr)+1)
	best := make(candidateHeap, 0, ix.candidateLimit+1)

	for i := range ix.entries {
		e := &ix.entries[i]
		score := substringScore(qr, e.addrRunes, column)
		if score > 0 {
			if s := parcelIDScore(q, qr, e.idRunes, column); s < score {
				score = s
			}
		}

		if len(best) < ix.candidateLimit {
			heap.Push(&best, candidate{pos: i, score: score})
		} else if less(candidate{pos: i, score: score}, best[0]) {
			best[0] = candidate{pos: i, score: score}
			heap.Fix(&best, 0)
		}
	}

	ranked := make([]candidate, len(best))
	for k := len(best) - 1; k >= 0; k-- {
		ranked[k] = heap.Pop(&best).(candidate)
	}

	for _, c := range ranked {
		kept := c.score < threshold
		monitor.Candidate(ix.pairings[c.pos], c.score, kept)
		if kept {
			matched = append(matched, c.pos)
		}
	}
	return matched
}

// exactMatches returns positions whose parcel ID or address equals q,
// deduplicated by (ParcelID, FullAddress), in snapshot order.
func (ix *Index) exactMatches(q string) []int {
	item := ix.exact.Get(patricia.Prefix(q))
	if item == nil {
		return nil
	}
	positions := item.([]int)

	seen := make(map[core.ParcelPairing]struct{}, len(positions))
	exact := make([]int, 0, len(positions))
	for _, pos := range positions {
		p := ix.pairings[pos]
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		exact = append(exact, pos)
	}
	return exact
}

// merge prepends exact matches and drops later duplicates of them.
func (ix *Index) merge(exact, matched []int) []core.Suggestion {
	results := make([]core.Suggestion, 0, len(exact)+len(matched))
	promoted := make(map[core.ParcelPairing]struct{}, len(exact))
	for _, pos := range exact {
		p := ix.pairings[pos]
		promoted[p] = struct{}{}
		results = append(results, core.SuggestionFrom(p))
	}
	for _, pos := range matched {
		p := ix.pairings[pos]
		if _, dup := promoted[p]; dup {
			continue
		}
		results = append(results, core.SuggestionFrom(p))
	}
	return results
}

// candidate is a scored pairing position.
type candidate struct {
	pos   int
	score float64
}

// less orders by score, then snapshot position.
func less(a, b candidate) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.pos < b.pos
}

// candidateHeap is a max-heap: the worst kept candidate sits at the root.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return less(h[j], h[i]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}
