package event

const SeedProvisionedDestination string = "seed.provisioned"

// SeedProvisionedMessage announces that a new seed was stored. It carries a
// keyed fingerprint of the secret, never the secret.
type SeedProvisionedMessage struct {
	EventID       int64  `json:"event_id"`
	Fingerprint   string `json:"fingerprint"`
	StoreDriver   string `json:"store_driver"`
	ProvisionedAt int64  `json:"provisioned_at"`
}
