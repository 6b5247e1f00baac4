// Package docs looks up part numbers against third-party component
// documentation. Lookup never fails: network errors and timeouts degrade
// to a not-found result so a flaky documentation source can lower a score
// but never abort an authentication run.
package docs

import "context"

// Tier ranks the confidence of a documentation source.
type Tier string

const (
	TierManufacturer Tier = "manufacturer"
	TierDistributor  Tier = "distributor"
	TierAggregator   Tier = "aggregator"
	TierNone         Tier = "none"
)

// Score returns the documentation sub-score contribution for the tier.
func (t Tier) Score() int {
	switch t {
	case TierManufacturer:
		return 30
	case TierDistributor:
		return 20
	case TierAggregator:
		return 12
	default:
		return 0
	}
}

// Result is the outcome of a documentation lookup.
type Result struct {
	Found     bool   `json:"found"`
	Tier      Tier   `json:"source_tier"`
	Reference string `json:"reference,omitempty"`
}

// NotFound is the degraded result used for errors and misses.
func NotFound() Result {
	return Result{Found: false, Tier: TierNone}
}

// Lookup is the documentation collaborator contract. Implementations must
// be idempotent (safe to call twice for the same part) and must return a
// not-found result instead of propagating network failures.
type Lookup interface {
	Lookup(ctx context.Context, partNumber, manufacturerHint string) Result
}

// Static is a fixed part-number table implementing Lookup, for tests and
// offline operation.
type Static map[string]Result

// Lookup returns the table entry for the part, or not found.
func (s Static) Lookup(_ context.Context, partNumber, _ string) Result {
	if r, ok := s[partNumber]; ok {
		return r
	}
	return NotFound()
}
