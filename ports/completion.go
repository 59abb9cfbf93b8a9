package ports

import (
	"context"
	"io"

	"github.com/medilocker/medigate/core"
)

// CompletionRequest is a streamed chat completion request.
type CompletionRequest struct {
	Messages []core.ChatMessage
}

// CompletionClient opens a streamed completion against the upstream
// service. The returned body carries line-delimited event-stream frames
// and must be closed by the caller. Non-success responses surface as the
// distinct core chat errors (ErrRateLimited, ErrQuotaExhausted,
// ErrUpstreamService, ErrTransport).
type CompletionClient interface {
	StreamCompletion(ctx context.Context, req CompletionRequest) (io.ReadCloser, error)
}
