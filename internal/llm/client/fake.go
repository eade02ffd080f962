package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// FakeClient returns deterministic payloads per stage for offline runs and tests.
// Raw and Errs override the built-in payloads for a stage.
type FakeClient struct {
	ChunkSize int

	mu    sync.Mutex
	raw   map[Stage]string
	errs  map[Stage]error
	calls map[Stage]int
	last  map[Stage]Request
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		ChunkSize: 24,
		raw:       map[Stage]string{},
		errs:      map[Stage]error{},
		calls:     map[Stage]int{},
		last:      map[Stage]Request{},
	}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// SetRaw makes the stage answer with raw verbatim.
func (f *FakeClient) SetRaw(stage Stage, raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[stage] = raw
}

// SetError makes every call for stage fail with err. Pass nil to clear.
func (f *FakeClient) SetError(stage Stage, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, stage)
		return
	}
	f.errs[stage] = err
}

// Calls returns how many requests the stage has received.
func (f *FakeClient) Calls(stage Stage) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stage]
}

// LastRequest returns the most recent request for stage.
func (f *FakeClient) LastRequest(stage Stage) (Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.last[stage]
	return r, ok
}

func (f *FakeClient) record(req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Stage]++
	f.last[req.Stage] = req
	if err := f.errs[req.Stage]; err != nil {
		return "", err
	}
	if raw, ok := f.raw[req.Stage]; ok {
		return raw, nil
	}
	return fakePayload(req), nil
}

func (f *FakeClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Op: string(req.Stage), Err: err}
	}
	raw, err := f.record(req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (f *FakeClient) GenerateText(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &NetworkError{Op: string(req.Stage), Err: err}
	}
	return f.record(req)
}

func (f *FakeClient) GenerateStream(ctx context.Context, req Request) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &NetworkError{Op: string(req.Stage), Err: err}
	}
	text, err := f.record(req)
	if err != nil {
		return nil, err
	}
	size := f.ChunkSize
	if size <= 0 {
		size = len(text) + 1
	}
	return Once(func(yield func(string, error) bool) {
		for i := 0; i < len(text); i += size {
			if err := ctx.Err(); err != nil {
				yield("", &NetworkError{Op: string(req.Stage), Err: err})
				return
			}
			end := min(i+size, len(text))
			if !yield(text[i:end], nil) {
				return
			}
		}
	}), nil
}

func fakePayload(req Request) string {
	var obj any
	switch req.Stage {
	case StageDiagnose:
		comp := func(name string, score int) map[string]any {
			return map[string]any{"name": name, "score": score, "analysis": "fake " + strings.ToLower(name) + " analysis"}
		}
		obj = map[string]any{
			"overallScore": 62,
			"summary":      "fake diagnosis summary",
			"components": map[string]any{
				"humanCapital":        comp("Human Capital", 58),
				"infrastructure":      comp("Infrastructure", 61),
				"agglomeration":       comp("Agglomeration", 55),
				"economicComposition": comp("Economic Composition", 67),
				"governance":          comp("Governance", 64),
				"qualityOfLife":       comp("Quality of Life", 70),
			},
		}
	case StageSimulate:
		obj = map[string]any{
			"scenario":       "fake scenario",
			"intervention":   "fake intervention",
			"timeline":       "5-10 Years",
			"impactAnalysis": "fake impact analysis",
			"predictedOutcomes": []any{
				map[string]any{"metric": "Human Capital", "startValue": 58, "endValue": 66},
			},
		}
	case StageArchitect:
		obj = map[string]any{
			"strategicObjective": "fake objective",
			"ecosystemSummary":   "fake ecosystem summary",
			"partners": []any{
				map[string]any{"type": "Anchor", "entity": "Fake Anchor Co (Japan)", "rationale": "fake rationale"},
				map[string]any{"type": "Innovation", "entity": "Fake University (Philippines)", "rationale": "fake rationale"},
			},
		}
	case StageCapabilities:
		obj = map[string]any{
			"greeting": "Hello, this is an offline assistant.",
			"capabilities": []any{
				map[string]any{"title": "Translate Goals into Objectives", "description": "fake description", "prompt": "I need to attract semiconductor manufacturing to Arizona, USA."},
			},
		}
	case StageScope:
		obj = map[string]any{
			"summary": "fake research summary",
			"suggestions": map[string]any{
				"reportName": "Fake Scoped Report",
				"region":     "Davao City, Philippines",
				"industry":   "AgriTech",
			},
		}
	case StageReport:
		return fmt.Sprintf("# Offline Report\n\nThis placeholder document was produced without a generation service.\n\n%s\n", firstLine(req.Prompt))
	case StageLetter:
		return "Dear [Recipient],\n\nThis is an offline placeholder letter.\n\nSincerely,\n[Your Name]\n"
	case StageRefine:
		return "fake refined objective"
	case StageChat:
		return "fake follow-up answer"
	default:
		obj = map[string]any{}
	}
	b, _ := json.Marshal(obj)
	return string(b)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
