package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cryptobroker/internal/domain"
)

// BrokerFacade — то, что транспорту нужно от агрегатора.
type BrokerFacade interface {
	Estimates(ctx context.Context, symbol string, size float64, action domain.Action) (EstimatesResponse, error)
	Best(ctx context.Context, symbol string, size float64, action domain.Action) (BestResponse, error)
	Execute(ctx context.Context, symbol string, size float64, action domain.Action) (OrderResponse, error)
	Rate(ctx context.Context, symbol string) (RateResponse, error)
}

type Server struct {
	addr      string
	broker    BrokerFacade
	allowExec bool
	server    *http.Server
	log       *logrus.Entry
}

// New собирает сервер. Исполнение заявок по HTTP выключено, пока
// allowExec не взведён явно.
func New(addr string, broker BrokerFacade, allowExec bool) *Server {
	return &Server{
		addr:      addr,
		broker:    broker,
		allowExec: allowExec,
		log:       logrus.WithField("component", "httpapi"),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// API
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/estimates", s.handleEstimates)
	mux.HandleFunc("/api/best", s.handleBest)
	mux.HandleFunc("/api/execute", s.handleExecute)
	mux.HandleFunc("/api/rate", s.handleRate)

	return withCORS(mux)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Infof("HTTP server listening on %s", s.addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleEstimates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	symbol, size, action, err := tradeParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := s.broker.Estimates(ctx, symbol, size, action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	symbol, size, action, err := tradeParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := s.broker.Best(ctx, symbol, size, action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if !s.allowExec {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "order execution is disabled"})
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "symbol is required"})
		return
	}
	if req.Size <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "size must be > 0"})
		return
	}
	action, err := parseAction(req.Action)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
		return
	}

	// оценка плюс исполнение, сетевых вызовов несколько
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	res, err := s.broker.Execute(ctx, req.Symbol, req.Size, action)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Infof("заявка через HTTP: %s %s на %s, id=%s", res.Action, res.Symbol, res.Exchange, res.ID)
	_ = json.NewEncoder(w).Encode(res)
}

// tradeParams разбирает общие параметры symbol/size/action из query.
func tradeParams(r *http.Request) (string, float64, domain.Action, error) {
	q := r.URL.Query()

	symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))
	if symbol == "" {
		return "", 0, "", errors.New("symbol is required")
	}
	size, err := strconv.ParseFloat(q.Get("size"), 64)
	if err != nil || size <= 0 {
		return "", 0, "", errors.New("size must be > 0")
	}
	action, err := parseAction(q.Get("action"))
	if err != nil {
		return "", 0, "", err
	}
	return symbol, size, action, nil
}

func parseAction(raw string) (domain.Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "buy":
		return domain.Buy, nil
	case "sell":
		return domain.Sell, nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// writeError переводит доменную ошибку в HTTP-статус.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Warnf("запрос не удался: %v", err)
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPairNotFound), errors.Is(err, domain.ErrNoExchanges):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrBadResponse), errors.Is(err, domain.ErrRetriesExhausted):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
