package checkpoint

import (
	"io"
	"sync"
)

type job struct {
	label string
	ext   string
	write func(io.Writer) error
}

// queue serializes artifact writes through one worker goroutine. At most one
// write per artifact waits in the queue; a newer one replaces it, so a slow
// disk makes backups fall behind instead of blocking the producer.
type queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	order    []string
	pending  map[string]job
	busy     bool
	stopping bool
	running  bool
	failed   int

	write func(job) error
	done  chan struct{}
}

func newQueue(write func(job) error) *queue {
	q := &queue{
		pending: make(map[string]job),
		write:   write,
		running: true,
		done:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *queue) push(j job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopping {
		return
	}
	if _, ok := q.pending[j.ext]; !ok {
		q.order = append(q.order, j.ext)
	}
	q.pending[j.ext] = j
	q.cond.Broadcast()
}

func (q *queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.order) == 0 && !q.stopping {
			q.cond.Wait()
		}
		if len(q.order) == 0 {
			q.running = false
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		}
		ext := q.order[0]
		q.order = q.order[1:]
		j := q.pending[ext]
		delete(q.pending, ext)
		q.busy = true
		q.mu.Unlock()

		err := q.write(j)

		q.mu.Lock()
		if err != nil {
			q.failed++
		}
		q.busy = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

// flush waits until the queue is empty and no write is in progress.
func (q *queue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running && (len(q.order) > 0 || q.busy) {
		q.cond.Wait()
	}
}

// stop lets the worker finish every queued write, then waits for it to exit.
func (q *queue) stop() {
	q.mu.Lock()
	q.stopping = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}

func (q *queue) failures() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.failed
}
