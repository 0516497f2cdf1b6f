package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"elearning-platform/internal/domain"
	"elearning-platform/internal/domain/model"
	"elearning-platform/internal/infra/gateway"
	"elearning-platform/internal/infra/logging"
	"elearning-platform/internal/usecase"
)

// Server exposes the registration, payment and plan routes.
type Server struct {
	activation usecase.ActivationUseCase
	plans      *usecase.PlanUseCase
	tokens     TokenParser
	log        *zerolog.Logger
	server     *http.Server
}

func NewServer(activation usecase.ActivationUseCase, plans *usecase.PlanUseCase, tokens TokenParser, logger *zerolog.Logger) *Server {
	return &Server{activation: activation, plans: plans, tokens: tokens, log: logger}
}

// Router builds the chi router. Split out from Start so tests can mount
// it on httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/registrations", s.handleInitializeRegistration)
		r.Get("/payments/verify", s.handleVerify)
		r.HandleFunc("/payments/webhook", s.handleWebhook)
		r.Get("/plans", s.handleListPlans)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(s.tokens))
			r.Post("/payments", s.handleInitializePayment)
		})
	})
	return r
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type registerRequest struct {
	Email    string             `json:"email"`
	Role     string             `json:"role"`
	PlanID   string             `json:"plan_id"`
	FullName string             `json:"full_name"`
	Password string             `json:"password"`
	Phone    string             `json:"phone,omitempty"`
	Ward     *model.WardPayload `json:"ward,omitempty"`
}

type initializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type userResponse struct {
	ID                    string     `json:"id"`
	FullName              string     `json:"full_name"`
	Email                 string     `json:"email,omitempty"`
	Role                  string     `json:"role"`
	XP                    int64      `json:"xp"`
	SubscriptionStatus    string     `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
}

type subscriptionResponse struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id,omitempty"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

type verifyResponse struct {
	Status       string                `json:"status"`
	Token        string                `json:"token,omitempty"`
	User         *userResponse         `json:"user,omitempty"`
	Subscription *subscriptionResponse `json:"subscription,omitempty"`
}

func (s *Server) handleInitializeRegistration(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	payload := model.RegistrationPayload{
		FullName: req.FullName,
		Password: req.Password,
		Phone:    req.Phone,
		Ward:     req.Ward,
	}
	out, err := s.activation.InitializeRegistration(r.Context(), req.Email, model.Role(req.Role), req.PlanID, payload)
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, initializeResponse{AuthorizationURL: out.AuthorizationURL, Reference: out.Reference})
}

type upgradeRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) handleInitializePayment(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	out, err := s.activation.InitializePayment(r.Context(), UserIDFrom(r.Context()), req.PlanID)
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, initializeResponse{AuthorizationURL: out.AuthorizationURL, Reference: out.Reference})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}
	s.verify(w, r, reference)
}

// handleWebhook accepts gateway redeliveries. The reference may arrive
// in the query string or a JSON body; verification itself is identical
// to the browser path and just as idempotent.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" && r.Body != nil {
		var body struct {
			Data struct {
				Reference string `json:"reference"`
			} `json:"data"`
			Reference string `json:"reference"`
		}
		if json.NewDecoder(r.Body).Decode(&body) == nil {
			reference = body.Data.Reference
			if reference == "" {
				reference = body.Reference
			}
		}
	}
	if reference == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}
	s.verify(w, r, reference)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request, reference string) {
	out, err := s.activation.VerifyPayment(r.Context(), reference)
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}

	resp := verifyResponse{Status: string(out.Status), Token: out.Token}
	if out.User != nil {
		resp.User = &userResponse{
			ID:                    out.User.ID,
			FullName:              out.User.FullName,
			Email:                 out.User.Email,
			Role:                  string(out.User.Role),
			XP:                    out.User.XP,
			SubscriptionStatus:    string(out.User.SubscriptionStatus),
			SubscriptionExpiresAt: out.User.SubscriptionExpiresAt,
		}
	}
	if out.Subscription != nil {
		resp.Subscription = &subscriptionResponse{
			ID:        out.Subscription.ID,
			PlanID:    out.Subscription.PlanID,
			Status:    string(out.Subscription.Status),
			ExpiresAt: out.Subscription.ExpiresAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type planResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		s.writeDomainError(r.Context(), w, err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{ID: p.ID, Name: p.Name, DurationDays: p.DurationDays, AmountMinor: p.AmountMinor, Currency: p.Currency})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email is already registered")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrRoleNotAllowed):
		writeError(w, http.StatusForbidden, "role cannot self-register")
	case errors.Is(err, domain.ErrPlanNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidPlanID),
		errors.Is(err, domain.ErrMissingPassword),
		errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &gwErr):
		logging.With(ctx, s.log).Error().Err(err).Msg("gateway error")
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
	default:
		logging.With(ctx, s.log).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
