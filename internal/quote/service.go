// Package quote orchestrates the issuance pipeline: rate limit, verify,
// score, price, encode, claim, sign. Stages run in that order and a
// rejection at any stage leaves no side effects from later ones.
package quote

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fairgate/internal/oracle"
	"fairgate/internal/payload"
	"fairgate/internal/platform/clock"
	"fairgate/internal/pricing"
	"fairgate/internal/quote/metrics"
	"fairgate/internal/replay"
	"fairgate/internal/scoring"
	dErrors "fairgate/pkg/domain-errors"
	"fairgate/pkg/platform/audit"
	"fairgate/pkg/requestcontext"
)

var identityHexPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
var proofHashHexPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// BundleVerifier gates verified-mode attestation bundles.
type BundleVerifier interface {
	VerifyBundle(ctx context.Context, subject string, attestations []scoring.RawAttestation) ([]string, error)
}

// RateLimiter admits or rejects a request by origin and identity.
type RateLimiter interface {
	Allow(ctx context.Context, origin, identity string) error
}

// ModeClassifier resolves the effective user mode.
type ModeClassifier interface {
	Classify(requested scoring.Mode, userAgent string) scoring.Mode
}

// ClaimGuard reserves the per-quote uniqueness key.
type ClaimGuard interface {
	Claim(ctx context.Context, key string) error
}

// Economics are the default pricing inputs applied when a request does not
// override them.
type Economics struct {
	InitialPrice     uint64
	SalesVelocityBPS int64
	TimeElapsed      uint64
	PolicyVersion    uint8
	ZKProvider       uint8
	ProofTTL         time.Duration
}

// Service issues signed quotes.
type Service struct {
	verifier   BundleVerifier
	limiter    RateLimiter
	classifier ModeClassifier
	guard      ClaimGuard
	signer     *oracle.Signer
	economics  Economics

	publisher audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clk       clock.Clock
	tracer    trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher sets the audit event publisher.
func WithPublisher(p audit.Publisher) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) ServiceOption {
	return func(s *Service) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// NewService wires the pipeline dependencies.
func NewService(
	verifier BundleVerifier,
	limiter RateLimiter,
	classifier ModeClassifier,
	guard ClaimGuard,
	signer *oracle.Signer,
	economics Economics,
	opts ...ServiceOption,
) *Service {
	if economics.ProofTTL <= 0 {
		economics.ProofTTL = 5 * time.Minute
	}
	s := &Service{
		verifier:   verifier,
		limiter:    limiter,
		classifier: classifier,
		guard:      guard,
		signer:     signer,
		economics:  economics,
		publisher:  audit.NewMemoryPublisher(),
		logger:     slog.Default(),
		clk:        clock.System(),
		tracer:     otel.Tracer("fairgate/quote"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// OraclePubkeyHex exposes the oracle verification key for integrators that
// pin it out of band.
func (s *Service) OraclePubkeyHex() string { return s.signer.PublicKeyHex() }

// Issue runs the pipeline for one request.
func (s *Service) Issue(ctx context.Context, req Request) (*Response, error) {
	start := s.clk.Now()
	ctx, span := s.tracer.Start(ctx, "quote.issue")
	defer span.End()

	resp, err := s.issue(ctx, req, span)
	if err != nil {
		s.metrics.IncrementRejected(dErrors.ReasonOf(err))
		return nil, err
	}
	s.metrics.ObserveIssueLatency(s.clk.Now().Sub(start))
	return resp, nil
}

func (s *Service) issue(ctx context.Context, req Request, span trace.Span) (*Response, error) {
	if !identityHexPattern.MatchString(req.Identity) {
		return nil, dErrors.New(dErrors.CodeValidation, "identity must be 64 hex characters").
			WithReason("invalid_identity")
	}
	identityBytes, err := hex.DecodeString(req.Identity)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "identity must be 64 hex characters").
			WithReason("invalid_identity")
	}
	identity, _ := payload.Bytes32(identityBytes)
	subject := req.Identity

	requestedMode := scoring.ModeVerified
	if req.Mode != "" {
		requestedMode = scoring.Mode(req.Mode)
		if !requestedMode.Valid() {
			return nil, dErrors.New(dErrors.CodeValidation, "mode must be bot_suspected, guest, or verified").
				WithReason("invalid_mode")
		}
	}

	origin := requestcontext.ClientIP(ctx)
	if err := s.limiter.Allow(ctx, origin, subject); err != nil {
		s.emit(ctx, audit.ActionRateLimitExceeded, subject, string(requestedMode), dErrors.ReasonOf(err))
		return nil, err
	}

	mode := s.classifier.Classify(requestedMode, requestcontext.UserAgent(ctx))
	span.SetAttributes(attribute.String("quote.mode", string(mode)))

	if mode == scoring.ModeVerified {
		verifyCtx, verifySpan := s.tracer.Start(ctx, "quote.verify")
		_, err := s.verifier.VerifyBundle(verifyCtx, subject, req.Attestations)
		verifySpan.End()
		if err != nil {
			reason := dErrors.ReasonOf(err)
			action := audit.ActionVerifyRejected
			if dErrors.HasCode(err, dErrors.CodeReplay) {
				action = audit.ActionReplayRejected
			}
			s.emit(ctx, action, subject, string(mode), reason)
			s.logger.WarnContext(ctx, "attestation bundle rejected",
				"request_id", requestcontext.RequestID(ctx),
				"identity", subject,
				"reason", reason,
			)
			return nil, err
		}
	}

	breakdown := scoring.Compute(req.Attestations, mode)

	input := pricing.Input{
		InitialPrice:     s.economics.InitialPrice,
		SalesVelocityBPS: s.economics.SalesVelocityBPS,
		TimeElapsed:      s.economics.TimeElapsed,
		DignityScore:     uint8(breakdown.TotalScore),
	}
	if req.InitialPrice != nil {
		input.InitialPrice = *req.InitialPrice
	}
	if req.SalesVelocityBPS != nil {
		input.SalesVelocityBPS = *req.SalesVelocityBPS
	}
	if req.TimeElapsed != nil {
		input.TimeElapsed = *req.TimeElapsed
	}

	_, priceSpan := s.tracer.Start(ctx, "quote.price")
	priced, err := pricing.ComputeQuote(input)
	priceSpan.End()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid pricing input").
			WithReason("invalid_pricing_input")
	}

	proofHash, err := s.resolveProofHash(req)
	if err != nil {
		return nil, err
	}

	uniqKey := replay.UniqKey(proofHash, identity)
	if mode == scoring.ModeVerified {
		if err := s.guard.Claim(ctx, uniqKey); err != nil {
			if dErrors.HasCode(err, dErrors.CodeReplay) {
				s.emit(ctx, audit.ActionReplayRejected, subject, string(mode), "quote_reused_in_active_window")
				return nil, dErrors.New(dErrors.CodeReplay, "proof already exchanged for a quote in the active window").
					WithReason("quote_reused_in_active_window")
			}
			return nil, err
		}
	}

	now := s.clk.Now()
	expiry := now.Add(s.economics.ProofTTL).Unix()
	nonce := uint64(now.UnixMilli())*1_000 + uint64(rand.Int63n(1_000))

	p := payload.ShieldPayload{
		PolicyVersion:     s.economics.PolicyVersion,
		Identity:          identity,
		InitialPrice:      input.InitialPrice,
		SalesVelocityBPS:  input.SalesVelocityBPS,
		TimeElapsed:       input.TimeElapsed,
		DignityScore:      uint8(breakdown.TotalScore),
		AdapterMask:       breakdown.AdapterMask,
		UserMode:          mode.Code(),
		ZKProvider:        s.economics.ZKProvider,
		ProofHash:         proofHash,
		ScoringModelHash:  scoring.ModelV0Hash(),
		AttestationExpiry: expiry,
		Nonce:             nonce,
	}
	if req.PolicyVersion != nil {
		p.PolicyVersion = *req.PolicyVersion
	}
	if req.ZKProvider != nil {
		p.ZKProvider = *req.ZKProvider
	}

	encoded := p.Encode()

	_, signSpan := s.tracer.Start(ctx, "quote.sign")
	signature := s.signer.Sign(encoded)
	signSpan.End()

	action := audit.ActionQuoteIssued
	if priced.Blocked {
		action = audit.ActionQuoteBlocked
	}
	s.emit(ctx, action, subject, string(mode), "")

	s.metrics.IncrementIssued(string(mode), priced.Blocked)
	s.logger.InfoContext(ctx, "quote issued",
		"request_id", requestcontext.RequestID(ctx),
		"identity", subject,
		"mode", mode,
		"dignity_score", breakdown.TotalScore,
		"final_price", priced.FinalPrice,
		"blocked", priced.Blocked,
		"nonce", nonce,
	)

	modelHash := scoring.ModelV0Hash()
	return &Response{
		DignityScore:     breakdown.TotalScore,
		AdapterBreakdown: breakdown,
		Price: PriceView{
			FinalPrice:           strconv.FormatUint(priced.FinalPrice, 10),
			Blocked:              priced.Blocked,
			IsInfinite:           priced.IsInfinite,
			EffectiveVelocityBPS: priced.EffectiveVelocityBPS,
		},
		Payload: PayloadView{
			PolicyVersion:       p.PolicyVersion,
			Identity:            subject,
			InitialPrice:        strconv.FormatUint(p.InitialPrice, 10),
			SalesVelocityBPS:    strconv.FormatInt(p.SalesVelocityBPS, 10),
			TimeElapsed:         strconv.FormatUint(p.TimeElapsed, 10),
			DignityScore:        p.DignityScore,
			AdapterMask:         p.AdapterMask,
			UserMode:            p.UserMode,
			ZKProvider:          p.ZKProvider,
			ProofHashHex:        hex.EncodeToString(p.ProofHash[:]),
			ScoringModelHashHex: hex.EncodeToString(p.ScoringModelHash[:]),
			AttestationExpiry:   strconv.FormatInt(p.AttestationExpiry, 10),
			Nonce:               strconv.FormatUint(p.Nonce, 10),
		},
		PayloadHex:          hex.EncodeToString(encoded),
		SignatureHex:        hex.EncodeToString(signature),
		SignatureBase64:     base64.StdEncoding.EncodeToString(signature),
		OraclePubkey:        s.signer.PublicKeyHex(),
		UniqKey:             uniqKey,
		ScoringModelHashHex: hex.EncodeToString(modelHash[:]),
		Privacy: Privacy{
			StoresRawCredentials:  false,
			StoresPrivateContent:  false,
			StoresMinimalMetadata: true,
		},
	}, nil
}

// resolveProofHash uses the pinned hash when provided, otherwise derives it
// from the attestation bundle.
func (s *Service) resolveProofHash(req Request) ([32]byte, error) {
	if req.ProofHashHex != "" {
		if !proofHashHexPattern.MatchString(req.ProofHashHex) {
			return [32]byte{}, dErrors.New(dErrors.CodeValidation, "proof_hash_hex must be 64 hex characters").
				WithReason("invalid_proof_hash")
		}
		raw, err := hex.DecodeString(req.ProofHashHex)
		if err != nil {
			return [32]byte{}, dErrors.New(dErrors.CodeValidation, "proof_hash_hex must be 64 hex characters").
				WithReason("invalid_proof_hash")
		}
		return payload.Bytes32(raw)
	}

	serialized, err := json.Marshal(req.Attestations)
	if err != nil {
		return [32]byte{}, dErrors.Wrap(err, dErrors.CodeInternal, "serialize attestations")
	}
	return sha256.Sum256(serialized), nil
}

func (s *Service) emit(ctx context.Context, action, subject, mode, reason string) {
	event := audit.Event{
		Category:  audit.CategorySecurity,
		Timestamp: s.clk.Now().UTC(),
		Action:    action,
		Subject:   subject,
		Mode:      mode,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", action,
			"error", fmt.Errorf("emit: %w", err),
		)
	}
}
