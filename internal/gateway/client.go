package gateway

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Per-client subscriptions, keyed by symbol.
	subMu    sync.RWMutex
	subs     map[string]*ClientSubscription
	training bool
}

func (c *Client) sendInitialState(lastTS string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}

		envelope, _ := json.Marshal(map[string]interface{}{
			"channel": channel,
			"data":    json.RawMessage(entry.Data),
			"ts":      entry.TS.Format(time.RFC3339Nano),
			"initial": true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: use NextWriter to batch queued messages
			// into a single WebSocket frame with newline separators
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			// Drain any queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type string `json:"type"`
			Ping int64  `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil {
			continue
		}

		switch base.Type {
		case "SUBSCRIBE":
			var subMsg SubscribeMsg
			if err := json.Unmarshal(msg, &subMsg); err != nil {
				SendError(c, "", "invalid SUBSCRIBE: "+err.Error())
				continue
			}
			go c.handleSubscribe(subMsg)

		case "UNSUBSCRIBE":
			var unsubMsg UnsubscribeMsg
			if err := json.Unmarshal(msg, &unsubMsg); err != nil {
				continue
			}
			c.handleUnsubscribe(unsubMsg)

		default:
			// Client-initiated latency probe
			if base.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      base.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}

// handleSubscribe processes a SUBSCRIBE message from the client.
func (c *Client) handleSubscribe(msg SubscribeMsg) {
	pred, ind, train := resolveFeeds(msg.Feeds)
	if len(msg.Symbols) == 0 && !train {
		SendError(c, msg.ReqID, "at least one symbol or the training feed is required")
		return
	}

	symbols := make([]string, 0, len(msg.Symbols))
	for _, s := range msg.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	c.subMu.Lock()
	if c.subs == nil {
		c.subs = make(map[string]*ClientSubscription)
	}
	for _, sym := range symbols {
		sub, ok := c.subs[sym]
		if !ok {
			sub = &ClientSubscription{Symbol: sym}
			c.subs[sym] = sub
		}
		sub.Predictions = sub.Predictions || pred
		sub.Indicators = sub.Indicators || ind
	}
	if train {
		c.training = true
	}
	c.subMu.Unlock()

	log.Printf("[gateway] client subscribed: symbols=%v feeds=%v", symbols, msg.Feeds)

	snap, err := BuildSnapshotFromRedis(context.Background(), c.hub.Rdb, symbols, msg.History.Predictions)
	if err != nil {
		SendError(c, msg.ReqID, "snapshot build failed: "+err.Error())
		return
	}
	snap.ReqID = msg.ReqID

	SendJSON(c, snap)
	log.Printf("[gateway] sent snapshot: symbols=%d predictions=%d indicators=%d",
		len(symbols), len(snap.Predictions), len(snap.Indicators))
}

// handleUnsubscribe removes subscriptions for the named symbols (or the
// training feed when it is listed).
func (c *Client) handleUnsubscribe(msg UnsubscribeMsg) {
	_, _, train := resolveFeeds(msg.Feeds)

	c.subMu.Lock()
	for _, s := range msg.Symbols {
		delete(c.subs, strings.ToUpper(strings.TrimSpace(s)))
	}
	if train && len(msg.Feeds) > 0 {
		c.training = false
	}
	c.subMu.Unlock()

	log.Printf("[gateway] client unsubscribed: symbols=%v", msg.Symbols)
}

// matchesChannel checks if a PubSub channel matches any of this client's
// subscriptions. Returns true if the client should receive this message.
func (c *Client) matchesChannel(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	if len(c.subs) == 0 && !c.training {
		// No subscriptions, firehose mode: receive everything
		return true
	}

	parsed := parseChannel(channel)
	if parsed == nil {
		return true // non-data channel (metrics frames), always deliver
	}

	switch parsed.kind {
	case "train":
		return c.training
	case "pred":
		if sub, ok := c.subs[parsed.symbol]; ok {
			return sub.Predictions
		}
	case "ind":
		if sub, ok := c.subs[parsed.symbol]; ok {
			return sub.Indicators
		}
	}
	return false
}

// parsedChannel holds the parsed components of a Redis PubSub channel name.
type parsedChannel struct {
	kind   string // "pred", "ind", "train"
	symbol string // "BTCUSDT"; empty for training
}

// parseChannel parses a PubSub channel like "pub:pred:BTCUSDT",
// "pub:ind:ETHUSDT" or "pub:train".
func parseChannel(channel string) *parsedChannel {
	parts := strings.Split(channel, ":")
	if len(parts) < 2 || parts[0] != "pub" {
		return nil
	}

	switch parts[1] {
	case "train":
		return &parsedChannel{kind: "train"}
	case "pred", "ind":
		if len(parts) >= 3 && parts[2] != "" {
			return &parsedChannel{kind: parts[1], symbol: parts[2]}
		}
	}
	return nil
}
