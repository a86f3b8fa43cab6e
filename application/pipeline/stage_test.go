package pipeline

import (
	"context"
	"errors"
	"testing"

	"time-for/domain/media"
)

type waitCounter struct {
	err   error
	waits int
}

func (w *waitCounter) Job() media.TranscodeJob { return media.TranscodeJob{Kind: media.JobScale} }

func (w *waitCounter) Wait() error {
	w.waits++
	return w.err
}

func spawnOf(p media.Process, err error) spawnFunc {
	return func(ctx context.Context) (media.Process, error) {
		return p, err
	}
}

func TestRunStage(t *testing.T) {
	spawnFailed := errors.New("spawn failed")
	waitFailed := errors.New("wait failed")

	t.Run("waits for every process", func(t *testing.T) {
		a, b := &waitCounter{}, &waitCounter{}
		if err := runStage(context.Background(), []spawnFunc{spawnOf(a, nil), spawnOf(b, nil)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.waits != 1 || b.waits != 1 {
			t.Errorf("waits = %d, %d", a.waits, b.waits)
		}
	})

	t.Run("started processes are joined after a spawn failure", func(t *testing.T) {
		a := &waitCounter{}
		never := &waitCounter{}
		err := runStage(context.Background(), []spawnFunc{
			spawnOf(a, nil),
			spawnOf(nil, spawnFailed),
			spawnOf(never, nil),
		})
		if !errors.Is(err, spawnFailed) {
			t.Fatalf("err = %v, want spawn failure", err)
		}
		if a.waits != 1 {
			t.Errorf("started process waited %d times, want 1", a.waits)
		}
		if never.waits != 0 {
			t.Error("spawning continued after a failure")
		}
	})

	t.Run("spawn failure wins over wait failure", func(t *testing.T) {
		err := runStage(context.Background(), []spawnFunc{
			spawnOf(&waitCounter{err: waitFailed}, nil),
			spawnOf(nil, spawnFailed),
		})
		if !errors.Is(err, spawnFailed) {
			t.Errorf("err = %v, want spawn failure", err)
		}
	})

	t.Run("wait failure is returned", func(t *testing.T) {
		err := runStage(context.Background(), []spawnFunc{
			spawnOf(&waitCounter{}, nil),
			spawnOf(&waitCounter{err: waitFailed}, nil),
		})
		if !errors.Is(err, waitFailed) {
			t.Errorf("err = %v, want wait failure", err)
		}
	})
}
