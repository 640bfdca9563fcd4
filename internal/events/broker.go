package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

const (
	subscriberBufSize = 64
	// maxReplay bounds the events kept for the most recent run.
	maxReplay = 256
)

// Feed names one kind of run progress event.
type Feed string

const (
	FeedRunStarted  Feed = "run_started"
	FeedEntry       Feed = "entry"
	FeedRunFinished Feed = "run_finished"
)

// Feeds lists every feed in the order a run emits them.
var Feeds = []Feed{FeedRunStarted, FeedEntry, FeedRunFinished}

func (f Feed) Valid() bool {
	switch f {
	case FeedRunStarted, FeedEntry, FeedRunFinished:
		return true
	}
	return false
}

func (f Feed) Description() string {
	switch f {
	case FeedRunStarted:
		return "a run began; carries run_id and started_at"
	case FeedEntry:
		return "one screenshot was captured, failed or skipped; carries the manifest.json entry"
	case FeedRunFinished:
		return "the run completed and manifest.txt was written; carries captured and errors"
	}
	return ""
}

// ParseFeeds parses a comma separated feed list. Empty input selects every feed
// and returns nil.
func ParseFeeds(s string) (map[Feed]bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := make(map[Feed]bool)
	for _, part := range strings.Split(s, ",") {
		f := Feed(strings.TrimSpace(part))
		if f == "" {
			continue
		}
		if !f.Valid() {
			return nil, fmt.Errorf("unknown feed %q", f)
		}
		out[f] = true
	}
	return out, nil
}

// Event is a single server-sent event. Seq increases for the broker's lifetime
// and is sent as the SSE id.
type Event struct {
	Seq     int64
	Feed    Feed
	RunID   string
	Payload string
}

// Broker fans run progress out to SSE clients. It keeps the events of the most
// recent run so clients that connect mid-run or after it can catch up.
type Broker struct {
	mu          sync.Mutex
	subscribers map[int64]chan Event
	nextID      int64
	seq         int64
	replay      []Event
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
	}
}

// Subscribe registers a new client and returns the events of the most recent
// run published so far. Slow consumers have live events dropped.
func (b *Broker) Subscribe() (int64, []Event, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ch := make(chan Event, subscriberBufSize)
	b.subscribers[b.nextID] = ch
	return b.nextID, append([]Event(nil), b.replay...), ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish marshals v as the payload of feed for runID and sends it to every
// subscriber without blocking. run_started resets the replay.
func (b *Broker) Publish(feed Feed, runID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Debug("event marshal failed", "feed", feed, "run_id", runID, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	evt := Event{Seq: b.seq, Feed: feed, RunID: runID, Payload: string(data)}
	if feed == FeedRunStarted {
		b.replay = b.replay[:0]
	}
	if len(b.replay) == maxReplay {
		b.replay = append(b.replay[:0], b.replay[1:]...)
	}
	b.replay = append(b.replay, evt)

	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
