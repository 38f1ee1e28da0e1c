package predengine

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"prediction-systemv1/internal/predictor"
)

// startHTTP launches the HTTP server for the read API and weight reload.
func (svc *Service) startHTTP(ctx context.Context) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/predictions", svc.handlePredictions)
		mux.HandleFunc("/predictions/history", svc.handlePredictionHistory)
		mux.HandleFunc("/training", svc.handleTraining)
		mux.HandleFunc("/training/history", svc.handleTrainingHistory)
		mux.HandleFunc("/reload", svc.handleReload)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})

		svc.log.Info("http server listening", "addr", svc.cfg.HTTPAddr)
		srv := &http.Server{Addr: svc.cfg.HTTPAddr, Handler: mux}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		if err := srv.ListenAndServe(); err != http.ErrServerClosed && ctx.Err() == nil {
			svc.log.Error("http server", "err", err)
		}
	}()
}

// handlePredictions serves the latest cached prediction(s).
// GET /predictions           → all symbols
// GET /predictions?symbol=X  → one symbol (404 if not yet evaluated)
func (svc *Service) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		pred, ok := svc.cache.Get(symbol)
		if !ok {
			http.Error(w, `{"error":"no prediction for symbol"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(pred)
		return
	}

	json.NewEncoder(w).Encode(svc.cache.All())
}

// handleTraining serves the retained synthetic training history.
func (svc *Service) handleTraining(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(svc.sim.History())
}

// handlePredictionHistory serves stored predictions for a symbol from SQLite.
// GET /predictions/history?symbol=X&after=<unix>&limit=N
func (svc *Service) handlePredictionHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if svc.sqlReader == nil {
		http.Error(w, `{"error":"persistence disabled"}`, http.StatusServiceUnavailable)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, `{"error":"symbol is required"}`, http.StatusBadRequest)
		return
	}

	afterTS := int64(0)
	if s := r.URL.Query().Get("after"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			afterTS = v
		}
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	preds, err := svc.sqlReader.ReadPredictions(symbol, afterTS, limit)
	if err != nil {
		http.Error(w, `{"error":"history read failed"}`, http.StatusInternalServerError)
		svc.log.Error("prediction history read", "symbol", symbol, "err", err)
		return
	}
	json.NewEncoder(w).Encode(preds)
}

// handleTrainingHistory serves persisted training metrics from SQLite, which
// survive restarts unlike the in-memory simulator history.
func (svc *Service) handleTrainingHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if svc.sqlReader == nil {
		http.Error(w, `{"error":"persistence disabled"}`, http.StatusServiceUnavailable)
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	hist, err := svc.sqlReader.ReadTrainingHistory(limit)
	if err != nil {
		http.Error(w, `{"error":"history read failed"}`, http.StatusInternalServerError)
		svc.log.Error("training history read", "err", err)
		return
	}
	json.NewEncoder(w).Encode(hist)
}

// handleReload handles POST /reload: re-read the weights file (or accept a
// weights document in the request body) and swap the predictor's weights.
func (svc *Service) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var (
		// A request body overrides fields on top of the compiled-in
		// defaults, so partial weight documents stay valid.
		weights = predictor.DefaultWeights()
		err     error
	)
	if r.ContentLength > 0 {
		if err = json.NewDecoder(r.Body).Decode(&weights); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err = weights.Validate(); err != nil {
			http.Error(w, "validation: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		weights, err = predictor.Load(svc.cfg.WeightsPath)
		if err != nil {
			http.Error(w, "reload: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	svc.pred.Reload(weights)
	svc.log.Info("scoring weights reloaded", "modelVersion", weights.ModelVersion)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"weights": weights,
	})
}
