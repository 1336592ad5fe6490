package inbound

import "time"

type HealthResponse struct {
	Status      string     `json:"status"`
	SeedPresent bool       `json:"seed_present"`
	LastCodeLog *time.Time `json:"last_code_log,omitempty"`
}

// DecryptSeedRequest tells an absent encrypted_seed (nil) from an empty one.
type DecryptSeedRequest struct {
	EncryptedSeed *string `json:"encrypted_seed"`
}

type DecryptSeedResponse struct {
	Status string `json:"status"`
}

type GenerateCodeResponse struct {
	Code     string `json:"code"`
	ValidFor int    `json:"valid_for"`
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

type VerifyCodeResponse struct {
	Valid bool `json:"valid"`
}
