package model

import "time"

// Credential is the transient payload embedded in an encrypted ticket
// token. It is never stored as-is: the registry keeps only the
// transaction id and secure key, everything else travels inside the
// token so the gate can greet the participant without a database
// round trip.
//
// Fields:
//  TransactionID – unique id of the payment transaction (or CASH-... id).
//  Name          – participant display name.
//  Phone         – normalized destination for notifications (digits only).
//  Plan          – plan display name (e.g. "Premium").
//  DurationMin   – session length in minutes granted by the plan.
//  AmountINR     – amount paid, in whole rupees.
//  SecureKey     – high-entropy single-use proof bound to TransactionID.
//  IssuedAt      – when the credential was issued.
type Credential struct {
	TransactionID string    `json:"transaction_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Plan          string    `json:"plan"`
	DurationMin   int       `json:"duration"`
	AmountINR     int       `json:"amount"`
	SecureKey     string    `json:"secure_key"`
	IssuedAt      time.Time `json:"issued_at"`
}
