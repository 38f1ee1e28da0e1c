package gateway

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	goredis "github.com/go-redis/redis/v8"
)

// ── WS Protocol Message Types ──

// Feed names a gateway data feed a client can subscribe to.
const (
	FeedPredictions = "predictions"
	FeedIndicators  = "indicators"
	FeedTraining    = "training"
)

// SubscribeMsg is the client → server SUBSCRIBE request.
type SubscribeMsg struct {
	Type    string         `json:"type"`    // "SUBSCRIBE"
	ReqID   string         `json:"reqId"`   // client-generated request ID
	Symbols []string       `json:"symbols"` // e.g. ["BTCUSDT", "ETHUSDT"]
	Feeds   []string       `json:"feeds"`   // subset of predictions/indicators/training
	History HistoryRequest `json:"history"` // how many historical predictions
}

// HistoryRequest specifies how much prediction history to include in the snapshot.
type HistoryRequest struct {
	Predictions int `json:"predictions"`
}

// UnsubscribeMsg is the client → server UNSUBSCRIBE request.
type UnsubscribeMsg struct {
	Type    string   `json:"type"` // "UNSUBSCRIBE"
	ReqID   string   `json:"reqId"`
	Symbols []string `json:"symbols"`
	Feeds   []string `json:"feeds"`
}

// SnapshotResponse is the server → client SNAPSHOT with current state and
// recent prediction history, sent once after a successful SUBSCRIBE.
type SnapshotResponse struct {
	Type        string                       `json:"type"` // "SNAPSHOT"
	ReqID       string                       `json:"reqId"`
	Predictions map[string]json.RawMessage   `json:"predictions"`
	Indicators  map[string]json.RawMessage   `json:"indicators"`
	History     map[string][]json.RawMessage `json:"history,omitempty"`
}

// ErrorResponse is the server → client ERROR message.
type ErrorResponse struct {
	Type  string `json:"type"` // "ERROR"
	ReqID string `json:"reqId,omitempty"`
	Error string `json:"error"`
}

// ── Subscription State ──

// ClientSubscription holds per-symbol feed flags for a client.
type ClientSubscription struct {
	Symbol      string
	Predictions bool
	Indicators  bool
}

// resolveFeeds parses the feeds list of a SUBSCRIBE message.
// An empty list means predictions + indicators.
func resolveFeeds(feeds []string) (pred, ind, train bool) {
	if len(feeds) == 0 {
		return true, true, false
	}
	for _, f := range feeds {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FeedPredictions:
			pred = true
		case FeedIndicators:
			ind = true
		case FeedTraining:
			train = true
		}
	}
	return
}

// ── Redis Snapshot Fetching ──

// BuildSnapshotFromRedis reads the latest prediction and indicator bundle for
// each symbol, plus recent prediction history from the per-symbol streams.
func BuildSnapshotFromRedis(ctx context.Context, rdb *goredis.Client, symbols []string, histLimit int) (*SnapshotResponse, error) {
	if histLimit < 0 {
		histLimit = 0
	}
	if histLimit > 500 {
		histLimit = 500
	}

	snap := &SnapshotResponse{
		Type:        "SNAPSHOT",
		Predictions: make(map[string]json.RawMessage, len(symbols)),
		Indicators:  make(map[string]json.RawMessage, len(symbols)),
	}
	if histLimit > 0 {
		snap.History = make(map[string][]json.RawMessage, len(symbols))
	}

	for _, sym := range symbols {
		if v, err := rdb.Get(ctx, "pred:latest:"+sym).Result(); err == nil {
			snap.Predictions[sym] = json.RawMessage(v)
		}
		if v, err := rdb.Get(ctx, "ind:latest:"+sym).Result(); err == nil {
			snap.Indicators[sym] = json.RawMessage(v)
		}

		if histLimit == 0 {
			continue
		}
		msgs, err := rdb.XRevRangeN(ctx, "pred:"+sym, "+", "-", int64(histLimit)).Result()
		if err != nil {
			log.Printf("[gateway] prediction stream read error for %s: %v", sym, err)
			continue
		}
		// Reverse to chronological order
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
		points := make([]json.RawMessage, 0, len(msgs))
		for _, msg := range msgs {
			if dataStr, ok := msg.Values["data"].(string); ok {
				points = append(points, json.RawMessage(dataStr))
			}
		}
		snap.History[sym] = points
	}

	return snap, nil
}

// SendJSON marshals and sends a message to the client's send channel.
func SendJSON(c *Client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[gateway] json marshal error: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Println("[gateway] client send buffer full, dropping message")
	}
}

// SendError sends an error response to the client.
func SendError(c *Client, reqID, errMsg string) {
	SendJSON(c, ErrorResponse{
		Type:  "ERROR",
		ReqID: reqID,
		Error: errMsg,
	})
}
