package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/rexliu/nanoframe/pkg/ipc"
)

// entry is either a call or a lifecycle record.
type entry struct {
	call      *CallRecord
	lifecycle *LifecycleRecord
}

// Journal writes records on its own goroutine so callers never wait on disk.
type Journal struct {
	store  *Store
	logger *slog.Logger
	queue  *ipc.Queue[entry]
	done   chan struct{}
}

// NewJournal starts the writer goroutine. The journal owns store from now on.
func NewJournal(store *Store, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Journal{
		store:  store,
		logger: logger.With("component", "journal"),
		queue:  ipc.NewQueue[entry](),
		done:   make(chan struct{}),
	}
	go j.run()
	return j
}

// RecordCall queues rec. Safe on a nil journal.
func (j *Journal) RecordCall(rec CallRecord) {
	if j == nil {
		return
	}
	j.queue.Push(entry{call: &rec})
}

// RecordLifecycle queues rec. Safe on a nil journal.
func (j *Journal) RecordLifecycle(rec LifecycleRecord) {
	if j == nil {
		return
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	j.queue.Push(entry{lifecycle: &rec})
}

// Close flushes queued records and closes the store, giving up when ctx ends.
func (j *Journal) Close(ctx context.Context) error {
	if j == nil {
		return nil
	}
	j.queue.Close()
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return j.store.Close()
}

func (j *Journal) run() {
	defer close(j.done)
	ctx := context.Background()
	for {
		e, err := j.queue.Pop(ctx)
		if err != nil {
			return
		}
		switch {
		case e.call != nil:
			err = j.store.InsertCall(ctx, *e.call)
		case e.lifecycle != nil:
			err = j.store.InsertLifecycle(ctx, *e.lifecycle)
		}
		if err != nil {
			j.logger.Warn("journal write failed", "error", err)
		}
	}
}
