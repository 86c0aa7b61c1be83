package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Async queues records for a background writer so callers never wait on I/O
type Async struct {
	next    Recorder
	log     *zap.Logger
	records chan MatchRecord
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

// NewAsync starts the background writer in front of next
func NewAsync(next Recorder, queueSize int, log *zap.Logger) *Async {
	if queueSize <= 0 {
		queueSize = 256
	}
	a := &Async{
		next:    next,
		log:     log,
		records: make(chan MatchRecord, queueSize),
		stop:    make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Enqueue hands a record to the writer. A full queue drops the record.
func (a *Async) Enqueue(rec MatchRecord) bool {
	select {
	case <-a.stop:
		return false
	default:
	}
	select {
	case a.records <- rec:
		return true
	default:
		a.dropped.Add(1)
		a.log.Warn("match record dropped", zap.String("session", rec.SessionID))
		return false
	}
}

// Record satisfies Recorder by enqueueing; it never blocks
func (a *Async) Record(_ context.Context, rec MatchRecord) error {
	a.Enqueue(rec)
	return nil
}

// Recent reads straight from the underlying recorder
func (a *Async) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	return a.next.Recent(ctx, limit)
}

// Dropped returns how many records were lost to a full queue
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close drains pending records and closes the underlying recorder
func (a *Async) Close() error {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
	return a.next.Close()
}

func (a *Async) writer() {
	defer a.wg.Done()
	for {
		select {
		case rec := <-a.records:
			a.write(rec)
		case <-a.stop:
			for {
				select {
				case rec := <-a.records:
					a.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) write(rec MatchRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := a.next.Record(ctx, rec); err != nil {
		a.log.Error("record match", zap.String("session", rec.SessionID), zap.Error(err))
	}
}
