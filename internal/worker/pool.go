// Package worker provides a small fixed-size pool of goroutines pulling
// tasks off a shared channel, lifecycle-managed by a tomb.Tomb.
package worker

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// Func is the work performed for one task. A non-nil error kills the
// tomb the pool is running under.
type Func = func(t *tomb.Tomb, task any) error

// Pool is a fixed-size worker pool fed from an internal task queue.
type Pool struct {
	n     int
	tasks chan any
}

// NewPool returns a Pool sized to run up to size tasks concurrently.
func NewPool(size int) *Pool {
	return &Pool{
		n:     size,
		tasks: make(chan any, taskChanSize),
	}
}

// AddTask enqueues a task for some worker to pick up. Blocks if the
// queue is full.
func (p *Pool) AddTask(task any) {
	p.tasks <- task
}

// Setup keeps the pool topped up to its configured size until t dies.
// Each worker runs one task then exits; Setup replaces it immediately
// if the tomb is still alive.
func (p *Pool) Setup(t *tomb.Tomb, work Func) {
	log.Info().Int("workers", p.n).Msg("worker: pool starting")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < p.n {
				t.Go(func() error {
					err := p.worker(t, work)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (p *Pool) worker(t *tomb.Tomb, work Func) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-p.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("worker: task returned error")
			return err
		}
	}
	return nil
}
