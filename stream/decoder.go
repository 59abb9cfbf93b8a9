// Package stream implements an incremental decoder for line-delimited
// event-stream (SSE) completion responses.
package stream

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

const (
	dataPrefix = "data: "
	doneToken  = "[DONE]"
)

// completionChunk is the slice of an upstream streaming payload the
// decoder cares about.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder reassembles complete JSON payloads out of an event-stream body
// arriving in arbitrary chunks. Chunks may split mid-line or mid-JSON;
// incomplete trailing bytes are held until more data arrives, so a delta
// is never emitted from partial JSON.
//
// Decoder is not safe for concurrent use; a stream is decoded by exactly
// one goroutine.
type Decoder struct {
	tail string
	done bool
	log  zerolog.Logger
}

// NewDecoder returns a decoder for one logical stream.
func NewDecoder(log zerolog.Logger) *Decoder {
	return &Decoder{log: log}
}

// Done reports whether the stream terminator has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends a raw chunk and returns the text deltas completed by it.
// Once the terminator sentinel has been seen, further chunks are ignored.
func (d *Decoder) Feed(chunk []byte) []string {
	if d.done {
		return nil
	}
	d.tail += string(chunk)
	return d.scan(false)
}

// Finish flushes any buffered complete lines after the underlying stream
// has ended. A provider that closes the connection without an explicit
// [DONE] still terminates the logical stream.
func (d *Decoder) Finish() []string {
	if d.done {
		return nil
	}
	deltas := d.scan(true)
	d.done = true
	return deltas
}

func (d *Decoder) scan(flush bool) []string {
	var deltas []string

	for {
		idx := strings.IndexByte(d.tail, '\n')
		if idx < 0 {
			break
		}
		line := d.tail[:idx]
		d.tail = d.tail[idx+1:]

		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneToken {
			d.done = true
			return deltas
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// The payload may have been split across SSE frames. If more
			// buffered lines follow, the frame had its chance to complete
			// and is simply malformed: skip it. Otherwise push the line
			// back and wait for more bytes.
			if flush || strings.Contains(d.tail, "\n") {
				d.log.Warn().Str("payload", payload).Msg("skipping malformed stream frame")
				continue
			}
			d.tail = line + "\n" + d.tail
			return deltas
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			deltas = append(deltas, chunk.Choices[0].Delta.Content)
		}
	}

	if flush && strings.TrimSpace(d.tail) != "" {
		// Unterminated final line: give it one last parse attempt.
		line := strings.TrimSuffix(d.tail, "\r")
		d.tail = ""
		if strings.HasPrefix(line, dataPrefix) {
			payload := strings.TrimSpace(line[len(dataPrefix):])
			if payload != doneToken {
				var chunk completionChunk
				if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
					d.log.Warn().Str("payload", payload).Msg("skipping malformed trailing frame")
				} else if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
					deltas = append(deltas, chunk.Choices[0].Delta.Content)
				}
			}
		}
	}

	return deltas
}
