// Package ws streams report and letter generation to browser clients over a
// websocket, for frontends that cannot speak connect server streams.
package ws

import (
	"context"
	"errors"
	"iter"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	llmclient "nexus/internal/llm/client"
	"nexus/internal/session"
	"nexus/internal/stream"
	"nexus/internal/types"
)

const (
	reportWSWriteWait = 10 * time.Second
	reportWSPongWait  = 60 * time.Second
	reportWSPingEvery = (reportWSPongWait * 9) / 10
)

var reportWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type inbound struct {
	Type   string                  `json:"type"`
	Params *types.ReportParameters `json:"params,omitempty"`
}

// Outbound frames. Fragments may be dropped when the client reads too
// slowly; the complete frame always carries the full document.
type outbound struct {
	Type    string             `json:"type"`
	Kind    string             `json:"kind,omitempty"`
	Text    string             `json:"text,omitempty"`
	Content string             `json:"content,omitempty"`
	Code    string             `json:"code,omitempty"`
	Message string             `json:"message,omitempty"`
	Fields  []types.FieldError `json:"fields,omitempty"`
}

// ReportHandler serves /ws/report.
type ReportHandler struct {
	svc    session.Generator
	logger *log.Logger
}

func NewReportHandler(svc session.Generator, logger *log.Logger) *ReportHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

// generation is the single in-flight document of one connection.
type generation struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func (g *generation) start(parent context.Context) (context.Context, uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		return nil, 0, false
	}
	ctx, cancel := context.WithCancel(parent)
	g.seq++
	g.cancel = cancel
	return ctx, g.seq, true
}

// finish releases the slot if it still belongs to generation id.
func (g *generation) finish(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seq == id && g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

func (g *generation) stop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel == nil {
		return false
	}
	g.cancel()
	g.cancel = nil
	return true
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := reportWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(reportWSPongWait)); err != nil {
		h.logger.Printf("report ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(reportWSPongWait))
	})

	writeCh := make(chan outbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(reportWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(reportWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(reportWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var gen generation
	var running sync.WaitGroup
	defer func() {
		gen.stop()
		cancel()
		running.Wait()
		<-writerDone
	}()

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		switch msgType {
		case "ping":
			push(writeCh, outbound{Type: "pong"})
		case "cancel":
			if gen.stop() {
				push(writeCh, outbound{Type: "cancelled"})
			}
		case "report", "letter":
			if in.Params == nil {
				push(writeCh, outbound{Type: "error", Code: "invalid_argument", Message: "params are required"})
				continue
			}
			genCtx, id, ok := gen.start(ctx)
			if !ok {
				push(writeCh, errorFrame(msgType, session.ErrBusy))
				continue
			}
			p := *in.Params
			running.Add(1)
			go func() {
				defer running.Done()
				last, ok := h.generate(genCtx, msgType, p, writeCh)
				gen.finish(id)
				if ok {
					deliver(writeCh, writerDone, last)
				}
			}()
		case "":
			push(writeCh, outbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		default:
			push(writeCh, outbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + msgType})
		}
	}
}

// generate streams one document and returns its terminal frame. ok is false
// when the generation was cancelled and nothing more should be sent.
func (h *ReportHandler) generate(ctx context.Context, kind string, p types.ReportParameters, writeCh chan outbound) (outbound, bool) {
	open := h.svc.Report
	if kind == "letter" {
		open = h.svc.Letter
	}
	src, err := open(ctx, p)
	if err == nil {
		var stop func()
		src, stop, err = peek(src)
		defer stop()
	}
	if err != nil {
		if ctx.Err() != nil {
			return outbound{}, false
		}
		h.logger.Printf("report ws: %s generation failed: %v", kind, err)
		return errorFrame(kind, err), true
	}
	push(writeCh, outbound{Type: "started", Kind: kind})

	acc := stream.New()
	sent := 0
	err = acc.Consume(ctx, src, func(s stream.Snapshot) {
		if len(s.Content) > sent {
			push(writeCh, outbound{Type: "fragment", Kind: kind, Text: s.Content[sent:]})
			sent = len(s.Content)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return outbound{}, false
		}
		h.logger.Printf("report ws: %s generation failed: %v", kind, err)
		return errorFrame(kind, err), true
	}
	return outbound{Type: "complete", Kind: kind, Content: acc.Content()}, true
}

// peek waits for the first item of s, so a failure before any text is
// reported without announcing the document. The returned stream replays
// that item; stop releases s if the stream is never drained.
func peek(s llmclient.Stream) (llmclient.Stream, func(), error) {
	next, stop := iter.Pull2(s)
	first, err, ok := next()
	if err != nil {
		stop()
		return nil, func() {}, err
	}
	rest := func(yield func(string, error) bool) {
		defer stop()
		if !ok || !yield(first, nil) {
			return
		}
		for {
			frag, err, ok := next()
			if !ok || !yield(frag, err) {
				return
			}
		}
	}
	return rest, stop, nil
}

func errorFrame(kind string, err error) outbound {
	out := outbound{Type: "error", Kind: kind, Code: "internal", Message: err.Error()}
	var (
		cfg *types.ConfigurationError
		svc *llmclient.ServiceError
	)
	switch {
	case errors.As(err, &cfg):
		out.Code = "invalid_argument"
		out.Fields = cfg.Fields
	case errors.Is(err, session.ErrBusy):
		out.Code = "busy"
	case errors.As(err, &svc):
		out.Code = "unavailable"
		out.Message = svc.Message
		if svc.Status == http.StatusTooManyRequests {
			out.Code = "resource_exhausted"
		}
	case llmclient.IsParse(err):
		out.Code = "parse"
	case llmclient.IsNetwork(err):
		out.Code = "unavailable"
	case errors.Is(err, context.Canceled):
		out.Code = "canceled"
	}
	return out
}

// deliver blocks until out is queued or the writer has gone. Terminal
// frames are never dropped while the connection is open.
func deliver(writeCh chan outbound, done <-chan struct{}, out outbound) {
	select {
	case writeCh <- out:
	case <-done:
	}
}

func push(writeCh chan outbound, out outbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
