package predictor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// BatchPredictor splits a batch into chunks scored concurrently by at most
// Workers goroutines. Labels come back in request order.
type BatchPredictor struct {
	*Predictor
	Workers   int
	ChunkSize int
}

// NewBatchPredictor wraps p. Workers below 1 are treated as 1.
func NewBatchPredictor(p *Predictor, workers int) *BatchPredictor {
	if workers < 1 {
		workers = 1
	}
	return &BatchPredictor{Predictor: p, Workers: workers, ChunkSize: 64}
}

// PredictBatch returns one label per passenger in request order
func (b *BatchPredictor) PredictBatch(ctx context.Context, reqs []models.PredictionRequest) ([]int, error) {
	out := make([]int, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}

	chunk := b.ChunkSize
	if chunk < 1 {
		chunk = len(reqs)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Workers)
	for start := 0; start < len(reqs); start += chunk {
		start := start
		end := min(start+chunk, len(reqs))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			labels, err := b.predictRows(gctx, reqs[start:end])
			if err != nil {
				return fmt.Errorf("batch rows %d-%d: %w", start, end-1, err)
			}
			copy(out[start:end], labels)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
