package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fairgate/internal/quote"
	dErrors "fairgate/pkg/domain-errors"
	"fairgate/pkg/platform/httputil"
	"fairgate/pkg/requestcontext"
)

// maxBodyBytes bounds request bodies; attestation bundles are small.
const maxBodyBytes = 1 << 20

// Service defines the quote operations the handler needs.
type Service interface {
	Issue(ctx context.Context, req quote.Request) (*quote.Response, error)
	OraclePubkeyHex() string
}

// Handler wires shield endpoints to the quote service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a quote handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the shield endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/shield/score", h.HandleScore)
	r.Get("/shield/oracle-pubkey", h.HandleOraclePubkey)
}

// HandleScore handles POST /shield/score requests.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	var req quote.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "request body is not valid JSON").
			WithReason("invalid_json"))
		return
	}

	resp, err := h.service.Issue(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "quote request rejected",
			"request_id", requestID,
			"reason", dErrors.ReasonOf(err),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "quote request served",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleOraclePubkey handles GET /shield/oracle-pubkey requests.
func (h *Handler) HandleOraclePubkey(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"oracle_pubkey": h.service.OraclePubkeyHex(),
	})
}
