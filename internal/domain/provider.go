package domain

import "context"

// ResultProvider fetches authoritative match data from the external scores
// API. Returned snapshots carry the provider's ExternalID but no contest
// document ID; callers map them back onto their cached copies.
type ResultProvider interface {
	FetchByIDs(ctx context.Context, ids []int64) ([]MatchSnapshot, error)
}
