package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded        DocumentStatus = "uploaded"
	StatusRedacting       DocumentStatus = "redacting"
	StatusRedacted        DocumentStatus = "redacted"
	StatusRedactionFailed DocumentStatus = "redaction_failed"
	StatusApproved        DocumentStatus = "approved"
	StatusRejected        DocumentStatus = "rejected"
)

type ExtractionStatus string

const (
	ExtractionNotStarted ExtractionStatus = "not_started"
	ExtractionRunning    ExtractionStatus = "extracting"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

// rejectableStatuses are the states a user may manually reject from.
var rejectableStatuses = map[DocumentStatus]bool{
	StatusUploaded:        true,
	StatusRedacting:       true,
	StatusRedacted:        true,
	StatusRedactionFailed: true,
}

type Document struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"owner_id"`
	Filename         string            `json:"filename"`
	ContentType      string            `json:"content_type"`
	SizeBytes        int64             `json:"size_bytes"`
	OriginalLocation string            `json:"original_location,omitempty"`
	RedactedLocation string            `json:"redacted_location,omitempty"`
	VaultLocation    string            `json:"vault_location,omitempty"`
	Status           DocumentStatus    `json:"status"`
	ExtractionStatus ExtractionStatus  `json:"extraction_status"`
	PIICount         int               `json:"pii_count"`
	Validation       *ValidationReport `json:"validation,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ValidationReport is the redaction validator's verdict on a redacted artifact.
// Skipped is set when the OCR collaborator refused the artifact for size; the
// pipeline then trusts the renderer instead of blocking on an unavailable check.
type ValidationReport struct {
	IsClean    bool      `json:"is_clean"`
	PIIFound   int       `json:"pii_found"`
	Findings   []Finding `json:"findings,omitempty"`
	Skipped    bool      `json:"skipped"`
	SkipReason string    `json:"skip_reason,omitempty"`
}

func (d *Document) CanReject() bool {
	return rejectableStatuses[d.Status]
}

func (d *Document) CanApprove() bool {
	return d.Status == StatusRedacted
}

// OwnedBy reports whether principal is the document owner. Every read and
// transition is gated on this; a mismatch is a reportable security event.
func (d *Document) OwnedBy(principal string) bool {
	return principal != "" && d.OwnerID == principal
}
