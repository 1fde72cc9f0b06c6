package chat

import (
	"context"
	"io"
	"strings"

	"github.com/rhuss/modelstream/pkg/api"
)

// Source is a pull-based event stream, such as *bridge.ResponseStream.
type Source interface {
	Next(ctx context.Context) (api.ResponseEvent, error)
	Close()
}

// Aggregator folds per-delta assistant messages into one message per turn.
// It is itself a Source and is not safe for concurrent use.
type Aggregator struct {
	src     Source
	text    strings.Builder
	pending *api.ResponseEvent
	done    bool
}

// Aggregate wraps src so that consumers see only final items. Assistant
// message text is concatenated and emitted as a single message just
// before Completed; all other items pass through in their original order.
// Errors pass through and end the stream, discarding any buffered text.
func Aggregate(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Next returns the next aggregated event, or io.EOF once the stream is
// exhausted.
func (a *Aggregator) Next(ctx context.Context) (api.ResponseEvent, error) {
	if a.pending != nil {
		ev := *a.pending
		a.pending = nil
		return ev, nil
	}
	if a.done {
		return api.ResponseEvent{}, io.EOF
	}

	for {
		ev, err := a.src.Next(ctx)
		if err != nil {
			if err == io.EOF || ctx.Err() == nil {
				a.done = true
			}
			return api.ResponseEvent{}, err
		}

		switch {
		case ev.Type == api.EventCompleted:
			a.done = true
			if a.text.Len() == 0 {
				return ev, nil
			}
			a.pending = &ev
			msg := api.NewAssistantMessage(a.text.String())
			a.text.Reset()
			return api.OutputItemDone(msg), nil

		case ev.Item != nil && ev.Item.Type == api.ItemTypeMessage && ev.Item.Role == api.RoleAssistant:
			a.text.WriteString(ev.Item.Text())

		default:
			return ev, nil
		}
	}
}

// Close closes the underlying source.
func (a *Aggregator) Close() {
	a.src.Close()
}
