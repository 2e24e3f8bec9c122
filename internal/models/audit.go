package models

// AuditStatus classifies one profile document relative to the identity store.
type AuditStatus string

const (
	// AuditMatched means the identity record exists and emails agree.
	AuditMatched AuditStatus = "matched"
	// AuditMissingIdentity flags an orphan profile: the identity record
	// behind this profile id no longer exists.
	AuditMissingIdentity AuditStatus = "missing-identity"
	// AuditEmailMismatch means both records exist but their emails differ,
	// i.e. the profile is stale relative to the identity store.
	AuditEmailMismatch AuditStatus = "email-mismatch"
)

// AuditEntry is one row of the read-only user reconciliation report.
type AuditEntry struct {
	IdentityID    string      `json:"identity_id" example:"73b3b73e-6bd9-4f3e-8ec3-0c0f6a5d0b2e"`
	ProfileEmail  string      `json:"profile_email" example:"dana@example.com"`
	IdentityEmail string      `json:"identity_email,omitempty" example:"dana@example.com"`
	Status        AuditStatus `json:"status" example:"matched"`
}
