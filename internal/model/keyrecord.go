package model

import "time"

// KeyRecord is the durable registry entry for one issued credential.
// It is created at issuance and mutated exactly once, when the token
// is successfully consumed at the gate. Records are never deleted
// during normal operation so the used flag doubles as an audit trail.
type KeyRecord struct {
	TransactionID string     `json:"transaction_id"`
	SecureKey     string     `json:"secure_key"`
	Used          bool       `json:"used"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
