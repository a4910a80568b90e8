package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bondswap/core"
	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/storage/audit"
)

const maxBodyBytes = 1 << 20

// server exposes read access to the node plus a request endpoint that feeds
// the same path as the replay stream. The host is single-threaded so every
// handler takes mu.
type server struct {
	mu         sync.Mutex
	node       *core.Node
	journal    *audit.Journal
	events     *eventHub
	allowAdmin bool
	logger     *slog.Logger
}

// serverOptions guard the mutating routes. AllowAdmin admits fund and
// advance requests, and execute requests that move the clock.
type serverOptions struct {
	Auth       *authenticator
	Limit      *rateLimiter
	Events     *eventHub
	AllowAdmin bool
}

var (
	errAdminDisabled   = errors.New("fund and advance requests are disabled on this endpoint")
	errSenderNotSigner = errors.New("sender does not match token subject")
)

func newServer(node *core.Node, journal *audit.Journal, opts serverOptions, logger *slog.Logger) http.Handler {
	s := &server{
		node:       node,
		journal:    journal,
		events:     opts.Events,
		allowAdmin: opts.AllowAdmin,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/deployment", s.handleDeployment)
	r.Get("/block", s.handleBlock)
	r.Post("/query/{contract}", s.handleQuery)
	r.Get("/journal", s.handleJournal)
	r.Get("/events", s.handleEvents)
	r.Group(func(r chi.Router) {
		r.Use(opts.Limit.middleware, opts.Auth.middleware)
		r.Post("/requests", s.handleRequest)
	})
	return otelhttp.NewHandler(r, "bondswapd")
}

func (s *server) handleDeployment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	dep, err := s.node.Deployment()
	s.mu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

func (s *server) handleBlock(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	block := s.node.Host().Block()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, block)
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	contract, err := s.node.Resolve(chi.URLParam(r, "contract"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out, err := s.node.Host().Query(contract, body)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

type requestResponse struct {
	RequestID string         `json:"request_id,omitempty"`
	Contract  string         `json:"contract,omitempty"`
	Events    []*types.Event `json:"events"`
}

func (s *server) handleRequest(w http.ResponseWriter, r *http.Request) {
	var req core.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("bondswap.request.kind", req.Kind),
		attribute.String("bondswap.request.contract", req.Contract),
	)
	if err := s.admit(r, req); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusForbidden, err)
		return
	}
	s.mu.Lock()
	res, err := s.node.Apply(r.Context(), req)
	s.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		writeError(w, statusFor(err), err)
		return
	}
	if res.RequestID != uuid.Nil {
		span.SetAttributes(attribute.String("bondswap.request.id", res.RequestID.String()))
	}
	out := requestResponse{Events: res.Events}
	if res.RequestID != uuid.Nil {
		out.RequestID = res.RequestID.String()
	}
	if !res.Contract.IsZero() {
		out.Contract = res.Contract.String()
	}
	writeJSON(w, http.StatusOK, out)
}

// admit applies the endpoint policy that the replay stream does not need.
func (s *server) admit(r *http.Request, req core.Request) error {
	switch strings.ToLower(strings.TrimSpace(req.Kind)) {
	case core.RequestFund, core.RequestAdvance:
		if !s.allowAdmin {
			return errAdminDisabled
		}
	}
	if req.Seconds > 0 && !s.allowAdmin {
		return errAdminDisabled
	}
	if subject := tokenSubject(r.Context()); subject != "" && subject != req.Sender.String() {
		return errSenderNotSigner
	}
	return nil
}

func (s *server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, errors.New("audit journal disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	failed, _ := strconv.ParseBool(r.URL.Query().Get("failed"))
	entries, err := s.journal.Recent(r.Context(), limit, failed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, host.ErrUnknownContract), errors.Is(err, core.ErrNotBootstrapped):
		return http.StatusNotFound
	case errors.Is(err, host.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
