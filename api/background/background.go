package background

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Background tracks fire-and-forget tasks so they can be drained on
// shutdown instead of being killed mid-flight.
type Background struct {
	log  logrus.FieldLogger
	wg   sync.WaitGroup
	done chan struct{}
}

func New(log logrus.FieldLogger) *Background {
	return &Background{
		log:  log,
		done: make(chan struct{}),
	}
}

// Add runs task on its own goroutine, recovering panics.
func (b *Background) Add(task func() error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("panic", rec).Error("background task panicked")
			}
		}()

		if err := task(); err != nil {
			b.log.WithField("message", err).Error("background task failed")
		}
	}()
}

// Loop runs task every interval until Shutdown is called.
func (b *Background) Loop(interval time.Duration, task func() error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-b.done:
				return
			case <-t.C:
				if err := task(); err != nil {
					b.log.WithField("message", err).Error("background loop task failed")
				}
			}
		}
	}()
}

// Shutdown stops loops and waits for in-flight tasks, bounded by ctx.
func (b *Background) Shutdown(ctx context.Context) error {
	close(b.done)

	stopped := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
