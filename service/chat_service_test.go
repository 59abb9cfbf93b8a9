package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medilocker/medigate/adapters/completion"
	"github.com/medilocker/medigate/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			_, _ = w.Write([]byte(frame))
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newChatService(baseURL string) *ChatService {
	client := completion.NewHTTPClient(completion.Config{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
	return NewChatService(client, zerolog.Nop())
}

func collect(t *testing.T, deltas <-chan string, errs <-chan error) ([]string, error) {
	t.Helper()

	var out []string
	var streamErr error
	for deltas != nil || errs != nil {
		select {
		case d, ok := <-deltas:
			if !ok {
				deltas = nil
				continue
			}
			out = append(out, d)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			streamErr = err
		case <-time.After(5 * time.Second):
			t.Fatal("stream did not terminate")
		}
	}
	return out, streamErr
}

func TestSendStreamsDeltasIntoExchange(t *testing.T) {
	srv := sseServer(t, []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n",
		"data: [DONE]\n\n",
	})
	svc := newChatService(srv.URL)

	ex := core.NewExchange([]core.ChatMessage{
		{Role: core.ChatRoleUser, Content: "Hi there"},
	})

	deltas, errs, err := svc.Send(context.Background(), ex, core.PatientContext{Name: "Ada"}, nil)
	require.NoError(t, err)

	got, streamErr := collect(t, deltas, errs)
	require.NoError(t, streamErr)
	require.Equal(t, []string{"Hel", "lo"}, got)

	msgs := ex.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, core.ChatRoleAssistant, msgs[1].Role)
	require.Equal(t, "Hello", msgs[1].Content)
	require.False(t, ex.Streaming())
}

func TestSendSplitFrameAcrossChunks(t *testing.T) {
	srv := sseServer(t, []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel",
		"lo\"}}]}\n\n",
		"data: [DONE]\n\n",
	})
	svc := newChatService(srv.URL)

	ex := core.NewExchange(nil)
	deltas, errs, err := svc.Send(context.Background(), ex, core.PatientContext{}, nil)
	require.NoError(t, err)

	got, streamErr := collect(t, deltas, errs)
	require.NoError(t, streamErr)
	require.Equal(t, []string{"Hello"}, got)
}

func TestSendToleratesMissingTerminator(t *testing.T) {
	srv := sseServer(t, []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"done\"}}]}\n",
	})
	svc := newChatService(srv.URL)

	ex := core.NewExchange(nil)
	deltas, errs, err := svc.Send(context.Background(), ex, core.PatientContext{}, nil)
	require.NoError(t, err)

	got, streamErr := collect(t, deltas, errs)
	require.NoError(t, streamErr)
	require.Equal(t, []string{"done"}, got)
	require.False(t, ex.Streaming())
}

func TestSendErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, core.ErrRateLimited},
		{"quota exhausted", http.StatusPaymentRequired, core.ErrQuotaExhausted},
		{"upstream failure", http.StatusInternalServerError, core.ErrUpstreamService},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := statusServer(t, tc.status)
			svc := newChatService(srv.URL)

			ex := core.NewExchange(nil)
			_, _, err := svc.Send(context.Background(), ex, core.PatientContext{}, nil)
			require.ErrorIs(t, err, tc.want)

			// No placeholder assistant message on a failed send.
			require.Empty(t, ex.Messages())
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	svc := newChatService(srv.URL)
	_, _, err := svc.Send(context.Background(), core.NewExchange(nil), core.PatientContext{}, nil)
	require.ErrorIs(t, err, core.ErrTransport)
}

func TestSendCancellationStopsStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n"))
		flusher.Flush()
		<-release // stall the stream until the client has gone away
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	svc := newChatService(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	ex := core.NewExchange(nil)
	deltas, errs, err := svc.Send(ctx, ex, core.PatientContext{}, nil)
	require.NoError(t, err)

	select {
	case d := <-deltas:
		require.Equal(t, "first", d)
	case <-time.After(5 * time.Second):
		t.Fatal("no delta before cancellation")
	}

	cancel()

	got, streamErr := collect(t, deltas, errs)
	require.Empty(t, got)
	require.NoError(t, streamErr)
	require.False(t, ex.Streaming())
}

func TestSendPrependsSystemPrompt(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	t.Cleanup(srv.Close)

	svc := newChatService(srv.URL)
	ex := core.NewExchange([]core.ChatMessage{{Role: core.ChatRoleUser, Content: "what does this mean?"}})

	pred := &core.PredictionContext{
		Disease:    "Type 2 Diabetes",
		Confidence: 82,
		RiskLevel:  "moderate",
		Factors:    []core.PredictionFactor{{Factor: "BMI", Contribution: 40}},
		Prevention: []string{"regular exercise"},
	}

	deltas, errs, err := svc.Send(context.Background(), ex, core.PatientContext{Name: "Ada", BloodType: "O+"}, pred)
	require.NoError(t, err)
	_, streamErr := collect(t, deltas, errs)
	require.NoError(t, streamErr)

	body := string(gotBody)
	require.Contains(t, body, "MediLocker AI")
	require.Contains(t, body, "Ada")
	require.Contains(t, body, "Type 2 Diabetes")
	require.Contains(t, body, "what does this mean?")
	require.Contains(t, body, "\"stream\":true")
}
