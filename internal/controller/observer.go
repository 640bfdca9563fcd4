package controller

import (
	"time"

	"github.com/dgnsrekt/ui_capture/internal/capture"
	"github.com/dgnsrekt/ui_capture/internal/events"
	"github.com/dgnsrekt/ui_capture/internal/shots"
)

// BrokerObserver publishes run progress to SSE subscribers.
type BrokerObserver struct {
	broker *events.Broker
}

var _ capture.Observer = (*BrokerObserver)(nil)

func NewBrokerObserver(broker *events.Broker) *BrokerObserver {
	return &BrokerObserver{broker: broker}
}

func (o *BrokerObserver) RunStarted(runID string, startedAt time.Time) {
	o.broker.Publish(events.FeedRunStarted, runID, struct {
		RunID     string    `json:"run_id"`
		StartedAt time.Time `json:"started_at"`
	}{runID, startedAt})
}

func (o *BrokerObserver) EntryFinished(runID string, entry shots.Entry) {
	o.broker.Publish(events.FeedEntry, runID, struct {
		RunID string `json:"run_id"`
		shots.Entry
	}{runID, entry})
}

func (o *BrokerObserver) RunFinished(res capture.Result) {
	o.broker.Publish(events.FeedRunFinished, res.RunID, struct {
		RunID    string   `json:"run_id"`
		Captured []string `json:"captured"`
		Errors   []string `json:"errors"`
	}{res.RunID, res.Captured, res.Errors})
}
