package inbound

import (
	"strings"

	"github.com/shandysiswandi/pkitotp/internal/pkg/goerror"
	"github.com/shandysiswandi/pkitotp/internal/pkg/router"
	"github.com/shandysiswandi/pkitotp/internal/twofa/usecase"
)

const headerIdempotencyKey = "Idempotency-Key"

// HTTPEndpoint exposes HTTP handlers for seed provisioning and codes.
type HTTPEndpoint struct {
	uc uc
}

// Health reports liveness, whether a seed is stored and when the code log
// last wrote.
func (h *HTTPEndpoint) Health(r *router.Request) (any, error) {
	out := h.uc.Health(r.Context())

	resp := HealthResponse{Status: "ok", SeedPresent: out.SeedPresent}
	if !out.LastCodeLog.IsZero() {
		ts := out.LastCodeLog.UTC()
		resp.LastCodeLog = &ts
	}

	return resp, nil
}

// DecryptSeed decrypts the posted seed with the service key and stores it.
// An absent encrypted_seed answers 422. Every provisioning failure,
// including an empty blob, answers 500 {"error":"Decryption failed"}.
func (h *HTTPEndpoint) DecryptSeed(r *router.Request) (any, error) {
	var req DecryptSeedRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if req.EncryptedSeed == nil {
		return nil, goerror.NewInvalidInput(nil, "encrypted_seed", "encrypted_seed is a required field")
	}

	err := h.uc.DecryptSeed(r.Context(), usecase.DecryptSeedInput{
		EncryptedSeed:  *req.EncryptedSeed,
		IdempotencyKey: strings.TrimSpace(r.GetHeader(headerIdempotencyKey)),
	})
	if err != nil {
		return nil, err
	}

	return DecryptSeedResponse{Status: "ok"}, nil
}

// GenerateCode returns the current code and the seconds left in its step.
func (h *HTTPEndpoint) GenerateCode(r *router.Request) (any, error) {
	out, err := h.uc.GenerateCode(r.Context())
	if err != nil {
		return nil, err
	}

	return GenerateCodeResponse{Code: out.Code, ValidFor: out.ValidFor}, nil
}

// VerifyCode checks a code against the stored seed with one step of
// tolerance either side.
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{Code: req.Code})
	if err != nil {
		return nil, err
	}

	return VerifyCodeResponse{Valid: out.Valid}, nil
}
