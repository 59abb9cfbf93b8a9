package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
	"github.com/medilocker/medigate/stream"
	"github.com/rs/zerolog"
)

const readChunkSize = 8 * 1024

// ChatService drives a streamed exchange against the completion service,
// feeding the response body through the stream decoder and folding each
// delta into the exchange's in-progress assistant message.
type ChatService struct {
	client ports.CompletionClient
	log    zerolog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(client ports.CompletionClient, log zerolog.Logger) *ChatService {
	return &ChatService{client: client, log: log}
}

// Send opens a streamed completion for the exchange. The system prompt is
// built from the patient context and optional prediction context and
// prepended to the history.
//
// Pre-stream failures (rate limit, exhausted quota, upstream or transport
// errors) are returned synchronously so callers can map them before any
// output is produced. Once streaming, deltas arrive on the first channel
// in arrival order and are appended to the exchange as they are emitted;
// a mid-stream failure arrives on the second channel and ends the stream.
// Both channels are closed when the stream terminates. The exchange must
// not be read concurrently while the stream is live.
//
// Cancelling ctx stops the driver at the next chunk-read boundary and
// releases the upstream connection. No retry is performed.
func (s *ChatService) Send(ctx context.Context, ex *core.Exchange, patient core.PatientContext, pred *core.PredictionContext) (<-chan string, <-chan error, error) {
	messages := append(
		[]core.ChatMessage{{Role: core.ChatRoleSystem, Content: patient.SystemPrompt(pred)}},
		ex.Messages()...,
	)

	body, err := s.client.StreamCompletion(ctx, ports.CompletionRequest{Messages: messages})
	if err != nil {
		return nil, nil, err
	}

	if err := ex.BeginAssistant(); err != nil {
		body.Close()
		return nil, nil, err
	}

	deltas := make(chan string)
	errs := make(chan error, 1)

	go s.pump(ctx, ex, body, deltas, errs)

	return deltas, errs, nil
}

func (s *ChatService) pump(ctx context.Context, ex *core.Exchange, body io.ReadCloser, deltas chan<- string, errs chan<- error) {
	defer close(deltas)
	defer close(errs)
	defer body.Close()
	defer ex.EndAssistant()

	decoder := stream.NewDecoder(s.log)
	buf := make([]byte, readChunkSize)

	emit := func(parts []string) bool {
		for _, delta := range parts {
			if err := ex.AppendDelta(delta); err != nil {
				errs <- err
				return false
			}
			select {
			case deltas <- delta:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if !emit(decoder.Feed(buf[:n])) {
				return
			}
			if decoder.Done() {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Provider closed without an explicit terminator.
				emit(decoder.Finish())
				return
			}
			if ctx.Err() != nil {
				// Cooperative cancellation, not a stream failure.
				return
			}
			errs <- fmt.Errorf("reading completion stream: %w", core.ErrTransport)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}
