package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lawnchairsociety/dungeonstory/internal/layout"
)

// Result is the outcome of one dungeon in a batch.
type Result struct {
	Dungeon *layout.Dungeon
	Report  *Report
	Err     error
}

// RunBatch processes dungeons on up to workers goroutines. Each dungeon is
// handled by exactly one worker with its own Pipeline from newPipeline.
// Results are in input order and a failing dungeon does not stop the others.
// Dungeons not yet started when ctx is cancelled get ctx's error.
func RunBatch(ctx context.Context, dungeons []*layout.Dungeon, workers int, newPipeline func() *Pipeline) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(dungeons))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, d := range dungeons {
		results[i].Dungeon = d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Report, results[i].Err = newPipeline().Run(d)
			return nil
		})
	}

	g.Wait()
	return results, ctx.Err()
}
