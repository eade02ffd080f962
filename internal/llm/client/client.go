package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sync/atomic"
)

// Stage names the generation step a request belongs to. Fake clients and
// middleware key their behavior off it.
type Stage string

const (
	StageDiagnose     Stage = "diagnose"
	StageSimulate     Stage = "simulate"
	StageArchitect    Stage = "architect"
	StageReport       Stage = "report"
	StageLetter       Stage = "letter"
	StageCapabilities Stage = "capabilities"
	StageScope        Stage = "scope"
	StageRefine       Stage = "refine"
	StageChat         Stage = "chat"
)

// Request is a single generation call.
type Request struct {
	Stage  Stage
	System string
	Prompt string
	// Schema is required for GenerateJSON and ignored otherwise.
	Schema *Schema
	// Search enables web retrieval on the remote side.
	Search bool
}

func (r Request) Size() int { return len(r.System) + len(r.Prompt) }

// Stream is a lazy, finite sequence of text fragments. Fragments must be
// concatenated in delivery order. A Stream may be ranged over only once.
type Stream = iter.Seq2[string, error]

// Client is a generation service under three contracts: structured JSON,
// free text, and incremental text.
type Client interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
	GenerateText(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request) (Stream, error)
}

var ErrStreamConsumed = errors.New("llm: stream already consumed")

// Once makes seq non-restartable: a second range yields ErrStreamConsumed.
func Once(seq Stream) Stream {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}

// Collect drains a stream into a single string.
func Collect(s Stream) (string, error) {
	var out []byte
	for frag, err := range s {
		if err != nil {
			return string(out), err
		}
		out = append(out, frag...)
	}
	return string(out), nil
}
