package llm

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "nexus/internal/llm/client"
)

type recordingHook struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHook) Before(_ context.Context, req llmclient.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "before:"+string(req.Stage))
}

func (h *recordingHook) After(_ context.Context, req llmclient.Request, _ string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := "after:" + string(req.Stage)
	if err != nil {
		s += ":err"
	}
	h.events = append(h.events, s)
}

func TestWrapOrderIsLeftToRight(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next llmclient.Client) llmclient.Client {
			order = append(order, name)
			return next
		}
	}
	Wrap(llmclient.NewFakeClient(), mk("A"), mk("B"))
	// B wraps first, A wraps the result.
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestHooksFireAroundStream(t *testing.T) {
	fc := llmclient.NewFakeClient()
	fc.SetRaw(llmclient.StageReport, "abcdef")
	cli := Wrap(fc, WithHooks())
	hook := &recordingHook{}
	ctx := WithHook(context.Background(), hook)

	s, err := cli.GenerateStream(ctx, llmclient.Request{Stage: llmclient.StageReport})
	require.NoError(t, err)
	assert.Equal(t, []string{"before:report"}, hook.events, "after fires only once reading stops")

	out, err := llmclient.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", out)
	assert.Equal(t, []string{"before:report", "after:report"}, hook.events)
}

func TestLoggingReportsErrors(t *testing.T) {
	fc := llmclient.NewFakeClient()
	fc.SetError(llmclient.StageDiagnose, &llmclient.ServiceError{Status: 500, Message: "boom"})
	var buf bytes.Buffer
	cli := Wrap(fc, WithLogging(log.New(&buf, "", 0)))

	_, err := cli.GenerateJSON(context.Background(), llmclient.Request{Stage: llmclient.StageDiagnose, Prompt: "p"})
	require.Error(t, err)
	assert.True(t, strings.Contains(buf.String(), "LLM error (diagnose/json)"), buf.String())
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)
	fc := llmclient.NewFakeClient()
	cli := Wrap(fc, WithMetrics(m))

	_, err := cli.GenerateText(context.Background(), llmclient.Request{Stage: llmclient.StageRefine})
	require.NoError(t, err)
	fc.SetError(llmclient.StageRefine, &llmclient.NetworkError{Err: context.DeadlineExceeded})
	_, err = cli.GenerateText(context.Background(), llmclient.Request{Stage: llmclient.StageRefine})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("refine", "text", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("refine", "text", "network_error")))
}

func TestRateLimitHonorsContext(t *testing.T) {
	fc := llmclient.NewFakeClient()
	cli := Wrap(fc, RateLimit(0.001, 1))

	_, err := cli.GenerateText(context.Background(), llmclient.Request{Stage: llmclient.StageRefine})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cli.GenerateText(ctx, llmclient.Request{Stage: llmclient.StageRefine})
	require.Error(t, err)
	assert.True(t, llmclient.IsNetwork(err))
	assert.Equal(t, 1, fc.Calls(llmclient.StageRefine), "second call never reached the client")
}

func TestRateLimitDisabled(t *testing.T) {
	fc := llmclient.NewFakeClient()
	assert.Same(t, llmclient.Client(fc), RateLimit(0, 0)(fc))
}

type blockingClient struct{ *llmclient.FakeClient }

func (b blockingClient) GenerateText(ctx context.Context, _ llmclient.Request) (string, error) {
	<-ctx.Done()
	return "", &llmclient.NetworkError{Op: "text", Err: ctx.Err()}
}

func TestTimeoutAppliesToOneShot(t *testing.T) {
	cli := Wrap(blockingClient{llmclient.NewFakeClient()}, WithTimeout(10*time.Millisecond))
	_, err := cli.GenerateText(context.Background(), llmclient.Request{Stage: llmclient.StageRefine})
	require.Error(t, err)
	assert.True(t, llmclient.IsNetwork(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
