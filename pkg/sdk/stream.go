package playsearch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"
)

const maxFrameSize = 1 << 20

var errStreamTruncated = errors.New("playsearch: stream ended before done frame")

// Stream runs a streaming search. Frames arrive in order: meta, chunks,
// then done. An error frame is yielded together with a *StreamError.
// Transport and decode failures are yielded with a zero Event and end the
// sequence. Stop ranging to cancel the request.
//
//	for ev, err := range client.Stream(ctx, "how do I handle objections?", playsearch.ModeAuto) {
//	    if err != nil { ... }
//	    if ev.Type == playsearch.EventChunk { fmt.Print(ev.Content) }
//	}
func (c *Client) Stream(ctx context.Context, query string, m Mode) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		start := time.Now()
		err := c.stream(ctx, query, m, yield)
		c.obs.observe("stream", start, err)
	}
}

func (c *Client) stream(ctx context.Context, query string, m Mode, yield func(Event, error) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/search/stream", nil, searchRequest{Query: query, Mode: m})
	if err != nil {
		yield(Event{}, err)
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		err = fmt.Errorf("playsearch: stream: %w", err)
		yield(Event{}, err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err = decodeAPIError(resp)
		yield(Event{}, err)
		return err
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrameSize)

	var data bytes.Buffer
	for sc.Scan() {
		line := sc.Text()
		if line != "" {
			// SSE comments and fields other than data are ignored
			if payload, ok := strings.CutPrefix(line, "data:"); ok {
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimPrefix(payload, " "))
			}
			continue
		}
		if data.Len() == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data.Bytes(), &ev); err != nil {
			err = fmt.Errorf("playsearch: decode stream frame: %w", err)
			yield(Event{}, err)
			return err
		}
		data.Reset()

		switch ev.Type {
		case EventError:
			serr := &StreamError{Message: ev.Message}
			yield(ev, serr)
			return serr
		case EventDone:
			yield(ev, nil)
			return nil
		}
		if !yield(ev, nil) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		err = fmt.Errorf("playsearch: read stream: %w", err)
		yield(Event{}, err)
		return err
	}
	yield(Event{}, errStreamTruncated)
	return errStreamTruncated
}

// Answer is the accumulated result of a stream.
type Answer struct {
	Meta           Event
	Text           string
	IsInsufficient bool
}

// StreamAnswer consumes a stream and concatenates its chunks.
func (c *Client) StreamAnswer(ctx context.Context, query string, m Mode) (Answer, error) {
	var (
		a  Answer
		sb strings.Builder
	)
	for ev, err := range c.Stream(ctx, query, m) {
		if err != nil {
			a.Text = sb.String()
			return a, err
		}
		switch ev.Type {
		case EventMeta:
			a.Meta = ev
		case EventChunk:
			sb.WriteString(ev.Content)
		case EventDone:
			a.IsInsufficient = ev.IsInsufficient
		}
	}
	a.Text = sb.String()
	return a, nil
}
