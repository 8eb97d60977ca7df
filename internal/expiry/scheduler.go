package expiry

import (
	"container/heap"
	"sync"
	"time"

	"go.uber.org/zap"
)

// entry is a single pending deadline
type entry struct {
	key      string
	expireAt int64 // unix milliseconds
}

// entryHeap is a min-heap ordered by expireAt
type entryHeap []entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].expireAt < h[j].expireAt }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Scheduler raises one deletion event per registered deadline, at or after
// the registered instant, on its own goroutine. It keeps a single timer over
// a min-heap of (expireAt, key) instead of one timer per key.
//
// Re-registering a key does not cancel the previous deadline; the consumer is
// expected to verify the key is actually due when an event arrives, so a fire
// for a superseded registration is a harmless no-op
type Scheduler struct {
	mu   sync.Mutex
	heap entryHeap

	wake    chan struct{}
	expired chan string
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	logger *zap.Logger
}

// New creates a Scheduler and starts its background goroutine
func New(logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		wake:    make(chan struct{}, 1),
		expired: make(chan string, 64),
		stop:    make(chan struct{}),
		logger:  logger,
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Schedule registers a deletion event for key at expireAt (unix milliseconds).
// Fire-and-forget: the call never blocks on the timer goroutine
func (s *Scheduler) Schedule(key string, expireAt int64) {
	s.mu.Lock()
	heap.Push(&s.heap, entry{key: key, expireAt: expireAt})
	s.mu.Unlock()

	// nudge the timer loop, it may be sleeping past the new deadline
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Expired is the outbound stream of keys whose deadline has passed
func (s *Scheduler) Expired() <-chan string {
	return s.expired
}

// Len returns the number of pending entries, including superseded ones
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len()
}

// Stop terminates the background goroutine and closes the Expired channel.
// Pending entries are discarded
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		close(s.expired)
	})
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.emitDue()

		wait := s.nextWait()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
		case <-s.wake:
		case <-s.stop:
			return
		}
	}
}

// emitDue pops every entry whose deadline has passed and sends it downstream
func (s *Scheduler) emitDue() {
	now := time.Now().UnixMilli()

	for {
		s.mu.Lock()
		if s.heap.Len() == 0 || s.heap[0].expireAt > now {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.heap).(entry)
		s.mu.Unlock()

		select {
		case s.expired <- e.key:
			if s.logger.Core().Enabled(zap.DebugLevel) {
				s.logger.Debug("expiry fired", zap.String("key", e.key))
			}
		case <-s.stop:
			return
		}
	}
}

// nextWait returns how long to sleep until the earliest pending deadline
func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.heap.Len() == 0 {
		return time.Hour
	}

	wait := time.Until(time.UnixMilli(s.heap[0].expireAt))
	if wait < 0 {
		wait = 0
	}
	return wait
}
