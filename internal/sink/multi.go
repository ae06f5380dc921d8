package sink

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Multi writes to each sink in order and stops at the first failure.
type Multi []Sink

// Name implements Sink.
func (m Multi) Name() string { return "multi" }

// Write implements Sink.
func (m Multi) Write(ctx context.Context, header []string, rows [][]any) error {
	for _, s := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Write(ctx, header, rows); err != nil {
			return eris.Wrapf(err, "sink: %s", s.Name())
		}
		zap.L().Info("sink: wrote results", zap.String("sink", s.Name()), zap.Int("rows", len(rows)))
	}
	return nil
}
