package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, rdb *goredis.Client, ctx context.Context, symbols []string, processStart time.Time) {
	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		lastTS := r.URL.Query().Get("last_ts")
		hub.HandleWSRequest(conn, lastTS)
	})

	// REST: latest data per PubSub channel
	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.GetLatestAll())
	})

	// REST: configured symbols
	mux.HandleFunc("/api/symbols", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"symbols": symbols})
	})

	// REST: prediction history from the per-symbol Redis stream
	mux.HandleFunc("/api/predictions/history", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		serveStreamHistory(w, r, rdb, ctx, "pred:", symbols)
	})

	// REST: indicator bundle history from the per-symbol Redis stream
	mux.HandleFunc("/api/indicators/history", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		serveStreamHistory(w, r, rdb, ctx, "ind:", symbols)
	})

	// REST: gap backfill from the per-channel replay buffer.
	// Clients detect a channel_seq gap and request the missed envelopes.
	mux.HandleFunc("/api/missed", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		channel := r.URL.Query().Get("channel")
		from, err1 := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
		to, err2 := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
		if channel == "" || err1 != nil || err2 != nil || from > to {
			http.Error(w, `{"error":"channel, from and to are required"}`, http.StatusBadRequest)
			return
		}

		envelopes := hub.GetReplayRange(channel, from, to)
		out := make([]json.RawMessage, len(envelopes))
		for i, e := range envelopes {
			out[i] = json.RawMessage(e)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"channel":     channel,
			"current_seq": hub.GetChannelSeq(channel),
			"envelopes":   out,
		})
	})

	// REST: system metrics snapshot
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		m := CollectMetrics(processStart)
		if hub.Latency != nil {
			m.LatencyP50, m.LatencyP95, m.LatencyP99 = hub.Latency.Percentiles()
		}
		json.NewEncoder(w).Encode(m)
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		redisOK := true
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			redisOK = false
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// serveStreamHistory reads the newest entries from a "prefix:{SYMBOL}" Redis
// stream and returns them in chronological order.
func serveStreamHistory(w http.ResponseWriter, r *http.Request, rdb *goredis.Client, ctx context.Context, prefix string, symbols []string) {
	w.Header().Set("Content-Type", "application/json")

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" && len(symbols) > 0 {
		symbol = symbols[0]
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	upperBound := "+"
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		if t, err := time.Parse(time.RFC3339Nano, beforeStr); err == nil {
			upperBound = strconv.FormatInt(t.UnixMilli()-1, 10) + "-0"
		} else if t, err := time.Parse(time.RFC3339, beforeStr); err == nil {
			upperBound = strconv.FormatInt(t.UnixMilli()-1, 10) + "-0"
		}
	}

	msgs, err := rdb.XRevRangeN(ctx, prefix+symbol, upperBound, "-", int64(limit)).Result()
	if err != nil {
		json.NewEncoder(w).Encode([]interface{}{})
		return
	}

	// Reverse to chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	out := make([]json.RawMessage, 0, len(msgs))
	for _, msg := range msgs {
		if dataStr, ok := msg.Values["data"].(string); ok {
			out = append(out, json.RawMessage(dataStr))
		}
	}
	json.NewEncoder(w).Encode(out)
}
