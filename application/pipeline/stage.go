package pipeline

import (
	"context"

	"time-for/domain/media"

	"golang.org/x/sync/errgroup"
)

// spawnFunc starts one transformation of a stage
type spawnFunc func(ctx context.Context) (media.Process, error)

// runStage starts every operation of a stage and joins them.
// Nothing is cancelled: if one spawn fails, the ones already running are still waited for.
func runStage(ctx context.Context, spawns []spawnFunc) error {
	procs := make([]media.Process, 0, len(spawns))
	var spawnErr error
	for _, spawn := range spawns {
		p, err := spawn(ctx)
		if err != nil {
			spawnErr = err
			break
		}
		procs = append(procs, p)
	}

	waitErr := join(procs)
	if spawnErr != nil {
		return spawnErr
	}
	return waitErr
}

// join waits for every process and returns the first failure
func join(procs []media.Process) error {
	var g errgroup.Group
	for _, p := range procs {
		g.Go(p.Wait)
	}
	return g.Wait()
}
