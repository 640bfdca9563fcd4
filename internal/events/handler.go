package events

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultKeepalive is how often an idle stream gets a comment line. A run can
// sit on one page for the whole navigation timeout, which proxies would
// otherwise treat as a dead connection.
const DefaultKeepalive = 15 * time.Second

// SSEHandler streams run progress. New clients first receive the most recent
// run's events, minus any at or below Last-Event-ID.
//
// Query parameters:
//
//	feeds=entry,run_finished  only these feeds
//	follow=false              end the stream after the first run_finished
func SSEHandler(broker *Broker, keepalive time.Duration) http.HandlerFunc {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		feeds, err := ParseFeeds(r.URL.Query().Get("feeds"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		follow := r.URL.Query().Get("follow") != "false"
		var lastSeq int64
		if v := r.Header.Get("Last-Event-ID"); v != "" {
			lastSeq, _ = strconv.ParseInt(v, 10, 64)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, replay, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)
		slog.Debug("events client connected", "feeds", r.URL.Query().Get("feeds"), "replay", len(replay), "clients", broker.ClientCount())

		// send reports whether the stream should continue.
		send := func(evt Event) bool {
			if evt.Seq <= lastSeq {
				return true
			}
			if feeds == nil || feeds[evt.Feed] {
				fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Seq, evt.Feed, evt.Payload)
				flusher.Flush()
			}
			lastSeq = evt.Seq
			return follow || evt.Feed != FeedRunFinished
		}

		for _, evt := range replay {
			if !send(evt) {
				return
			}
		}

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case evt, ok := <-ch:
				if !ok || !send(evt) {
					return
				}
			}
		}
	}
}
