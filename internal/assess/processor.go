package assess

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tank-risk/internal/factor"
	"github.com/sells-group/tank-risk/internal/proximity"
	"github.com/sells-group/tank-risk/internal/result"
	"github.com/sells-group/tank-risk/internal/rules"
)

// Stats counts the records a processor handled.
type Stats struct {
	Scored int
	Failed int
}

// Processor scores the proximity records of one factor into the result store.
// The definition's kind and bound scorer select the rule; there is one
// processor type for every kind.
type Processor struct {
	def   factor.Definition
	store *result.Store
}

// NewProcessor binds a definition to the store it writes.
func NewProcessor(def factor.Definition, store *result.Store) *Processor {
	return &Processor{def: def, store: store}
}

// Process scores every record. A record that cannot be scored is written as a
// nil value with severity 0 and counted; other records are unaffected.
func (p *Processor) Process(records []proximity.Record) (Stats, error) {
	var st Stats
	for _, rec := range records {
		score, err := p.def.Score(rules.Input{Distance: rec.Distance, Attributes: rec.Attributes})
		if err != nil {
			if !rules.IsScoringError(err) {
				return st, eris.Wrapf(err, "assess: score %s for %s", p.def.Name, rec.AssetID)
			}
			zap.L().Debug("assess: record not scored",
				zap.String("factor", p.def.Name),
				zap.String("asset_id", rec.AssetID),
				zap.Error(err),
			)
			st.Failed++
			score = rules.Score{Value: nil, Severity: rules.SeverityNone}
		} else {
			st.Scored++
		}

		if err := p.store.Update(rec.AssetID, p.def.Name, score.Value, score.Severity); err != nil {
			return st, eris.Wrapf(err, "assess: update %s", p.def.Name)
		}
	}
	return st, nil
}
