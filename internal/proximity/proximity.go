// Package proximity defines the external service that measures how close
// each asset is to the features of a risk layer, and the adapters that back
// it: PostGIS, precomputed near-table files, and a rate limited, retrying
// decorator.
package proximity

import "context"

// NoTarget is the TargetID of a near row whose asset has no nearby feature.
const NoTarget int64 = -1

// NearRow is one row of a near table: the nearest risk feature to an asset
// and the raw distance between them.
type NearRow struct {
	AssetID  string
	TargetID int64
	Distance any
}

// Record is one asset's proximity result for a factor with the requested
// attributes of its nearest feature joined in.
type Record struct {
	AssetID    string
	Distance   any
	Attributes map[string]any
}

// Service computes near tables and joins risk feature attributes.
// Implementations must be safe for concurrent use.
type Service interface {
	// GenerateNearTable returns one row per asset in assets with the
	// nearest feature of risk. Distance is 0 when the asset is inside a
	// polygon feature.
	GenerateNearTable(ctx context.Context, assets, risk string) ([]NearRow, error)

	// JoinAttributes returns the requested columns of risk keyed by feature
	// id, for the given ids only.
	JoinAttributes(ctx context.Context, risk string, targetIDs []int64, columns []string) (map[int64]map[string]any, error)

	// Fields lists the attribute columns of layer.
	Fields(ctx context.Context, layer string) ([]string, error)
}

// Scratch is a worker-private store of near tables keyed by risk layer.
// It is not safe for concurrent use; each worker owns one.
type Scratch struct {
	tables map[string][]NearRow
}

// NewScratch returns an empty scratch store.
func NewScratch() *Scratch {
	return &Scratch{tables: make(map[string][]NearRow)}
}

// Put stores the near table for risk, replacing any previous one.
func (s *Scratch) Put(risk string, rows []NearRow) {
	s.tables[risk] = rows
}

// Drop removes the near table for risk.
func (s *Scratch) Drop(risk string) {
	delete(s.tables, risk)
}

// TargetIDs returns the distinct feature ids referenced by the near table
// for risk, in first-seen order. Rows without a target are ignored.
func (s *Scratch) TargetIDs(risk string) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range s.tables[risk] {
		if r.TargetID == NoTarget || seen[r.TargetID] {
			continue
		}
		seen[r.TargetID] = true
		ids = append(ids, r.TargetID)
	}
	return ids
}

// Records assembles the stored near table for risk into records, attaching
// the attributes joined for each row's target. attrs may be nil.
func (s *Scratch) Records(risk string, attrs map[int64]map[string]any) []Record {
	rows := s.tables[risk]
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec := Record{AssetID: r.AssetID, Distance: r.Distance}
		if attrs != nil {
			rec.Attributes = attrs[r.TargetID]
		}
		out = append(out, rec)
	}
	return out
}
