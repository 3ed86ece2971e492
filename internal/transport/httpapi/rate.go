package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// RateResponse — ответ на /api/rate: медиана mid-цен по биржам.
type RateResponse struct {
	Symbol    string   `json:"symbol"`
	Mid       float64  `json:"mid"`
	Exchanges []string `json:"exchanges,omitempty"` // биржи, чьи цены вошли в медиану
}

// handleRate обрабатывает GET /api/rate?symbol=BTCUSD.
// Mid — среднее лучшего аска и лучшего бида; по биржам берётся медиана.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "symbol is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 6*time.Second)
	defer cancel()

	res, err := s.broker.Rate(ctx, symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}
