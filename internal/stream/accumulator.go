package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	llmclient "nexus/internal/llm/client"
)

// ErrClosed is reported when the local reader was closed before the stream ended.
var ErrClosed = errors.New("stream: closed by reader")

// Snapshot is the accumulated state at one point in time.
type Snapshot struct {
	Content  string
	Complete bool
	Err      error
}

// Accumulator concatenates fragments in arrival order. Content is usable
// while the stream is running but is final only once Complete reports true.
// It is safe for one writer and any number of readers.
type Accumulator struct {
	mu       sync.Mutex
	buf      strings.Builder
	frags    int
	finished bool
	complete bool
	closed   bool
	err      error
}

func New() *Accumulator { return &Accumulator{} }

// Append adds a fragment. Empty fragments are accepted and change nothing.
// Appends after Finish or Close are dropped.
func (a *Accumulator) Append(fragment string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished || a.closed {
		return
	}
	a.frags++
	a.buf.WriteString(fragment)
}

// Finish records the end-of-stream signal. A nil err marks the content
// complete; anything else is the terminal error. Only the first call counts.
func (a *Accumulator) Finish(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return
	}
	a.finished = true
	if err != nil {
		a.err = err
		return
	}
	if a.closed {
		a.err = ErrClosed
		return
	}
	a.complete = true
}

// Close stops local accumulation. The remote side may keep producing.
func (a *Accumulator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	if !a.finished {
		a.finished = true
		a.err = ErrClosed
	}
}

func (a *Accumulator) Content() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}

func (a *Accumulator) Complete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.complete
}

func (a *Accumulator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Fragments counts appended fragments, empty ones included.
func (a *Accumulator) Fragments() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frags
}

func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{Content: a.buf.String(), Complete: a.complete, Err: a.err}
}

func (a *Accumulator) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Consume reads s to the end, calling onUpdate after every fragment and once
// more at the end. It returns the terminal error, or nil when the stream
// completed. Reading stops early when ctx is done or Close is called.
func (a *Accumulator) Consume(ctx context.Context, s llmclient.Stream, onUpdate func(Snapshot)) error {
	notify := func() {
		if onUpdate != nil {
			onUpdate(a.Snapshot())
		}
	}
	for frag, err := range s {
		if err != nil {
			a.Finish(err)
			notify()
			return err
		}
		if a.isClosed() {
			break
		}
		if cerr := ctx.Err(); cerr != nil {
			a.Finish(cerr)
			notify()
			return cerr
		}
		a.Append(frag)
		notify()
	}
	a.Finish(nil)
	notify()
	return a.Err()
}
