package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"demo-trading-go/internal/auth"
	"demo-trading-go/internal/models"
	"demo-trading-go/internal/pricing"
	"go.uber.org/zap"
)

// APIServer provides the HTTP interface the trading UI calls.
type APIServer struct {
	server     *http.Server
	engine     *Engine
	controller *Controller
	markets    *Markets
	auth       *auth.Service
	logger     *zap.Logger
}

// NewAPIServer creates a new APIServer listening on the given port.
func NewAPIServer(port int, engine *Engine, controller *Controller, markets *Markets, authService *auth.Service, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine:     engine,
		controller: controller,
		markets:    markets,
		auth:       authService,
		logger:     logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/api/auth/signup", s.signupHandler)
	mux.HandleFunc("/api/auth/login", s.loginHandler)
	mux.HandleFunc("/api/auth/logout", s.logoutHandler)
	mux.HandleFunc("/api/markets", s.marketsHandler)
	mux.HandleFunc("/api/commodities", s.commoditiesHandler)
	mux.HandleFunc("/api/trades", s.tradesHandler)
	mux.HandleFunc("/api/trades/active", s.activeTradesHandler)
	mux.HandleFunc("/api/trades/history", s.historyHandler)
	mux.HandleFunc("/api/balance", s.balanceHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requireUser resolves the bearer token to a user or writes a 401.
func (s *APIServer) requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		s.writeError(w, http.StatusUnauthorized, auth.ErrInvalidSession)
		return nil, false
	}
	token := strings.TrimPrefix(header, "Bearer ")

	user, err := s.auth.CurrentUser(token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, auth.ErrInvalidSession)
		return nil, false
	}
	return user, true
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		UUID      string `json:"uuid"`
		Name      string `json:"name"`
		StartTime string `json:"start_time"`
		Uptime    string `json:"uptime"`
	}{
		UUID:      s.engine.UUID,
		Name:      s.engine.Name,
		StartTime: s.engine.StartTime.Format(time.RFC3339),
		Uptime:    time.Since(s.engine.StartTime).String(),
	}
	s.writeJSON(w, http.StatusOK, status)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *APIServer) signupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	user, token, err := s.auth.SignUp(req.Email, req.Password, req.Name)
	if errors.Is(err, auth.ErrUserExists) {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		s.logger.Error("Signup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("signup failed"))
		return
	}

	s.writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (s *APIServer) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	user, token, err := s.auth.SignIn(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err != nil {
		s.logger.Error("Login failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("login failed"))
		return
	}

	s.writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (s *APIServer) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.auth.SignOut(token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) marketsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.markets.List(r.Context()))
}

func (s *APIServer) commoditiesHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.markets.Commodities())
}

type openTradeRequest struct {
	AssetID          string  `json:"asset_id"`
	Direction        string  `json:"direction"`
	Amount           float64 `json:"amount"`
	TimeframeSeconds int     `json:"timeframe_seconds"`
}

func (s *APIServer) tradesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req openTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	trade, err := s.controller.OpenTrade(r.Context(), user.UserID, req.AssetID, req.Direction, req.Amount, req.TimeframeSeconds)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusCreated, trade)
	case errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrInvalidTimeframe),
		errors.Is(err, ErrBelowMinimumAmount),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, pricing.ErrPriceUnavailable):
		// Validation failures carry the specific threshold in the message.
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("Failed to open trade", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to open trade"))
	}
}

func (s *APIServer) activeTradesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	views, err := s.controller.ActiveTradesForUser(r.Context(), user.UserID)
	if err != nil {
		s.logger.Error("Failed to list active trades", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to list active trades"))
		return
	}
	s.writeJSON(w, http.StatusOK, views)
}

// historyStats holds aggregate statistics over the trade history.
type historyStats struct {
	TotalTrades      int     `json:"total_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

type historyResponse struct {
	Trades []models.CompletedTrade `json:"trades"`
	Stats  historyStats            `json:"stats"`
}

func (s *APIServer) historyHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		trades, err := s.controller.HistoryForUser(user.UserID)
		if err != nil {
			s.logger.Error("Failed to list trade history", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to list trade history"))
			return
		}

		stats := historyStats{TotalTrades: len(trades)}
		for _, t := range trades {
			if t.Profit > 0 {
				stats.ProfitableTrades++
			}
			stats.TotalProfit += t.Profit
		}
		if stats.TotalTrades > 0 {
			stats.WinRate = float64(stats.ProfitableTrades) / float64(stats.TotalTrades) * 100
		}

		s.writeJSON(w, http.StatusOK, historyResponse{Trades: trades, Stats: stats})
	case http.MethodDelete:
		if err := s.controller.ClearHistory(); err != nil {
			s.logger.Error("Failed to clear trade history", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to clear trade history"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *APIServer) balanceHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	balance, err := s.controller.Balance(user.UserID)
	if err != nil {
		s.logger.Error("Failed to load balance", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to load balance"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{"balance": balance})
}
