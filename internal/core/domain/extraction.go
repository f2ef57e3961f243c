package domain

import "time"

// TaxFields are the five fields parsed out of an approved 1040. Nil means the
// field was not determinable from the document.
type TaxFields struct {
	FilingStatus          *string  `json:"filing_status"`
	W2Wages               *float64 `json:"w2_wages"`
	TotalDeductions       *float64 `json:"total_deductions"`
	IRADistributionsTotal *float64 `json:"ira_distributions_total"`
	CapitalGainOrLoss     *float64 `json:"capital_gain_or_loss"`
}

// FieldHints carries deterministically derived values. A hinted field always
// wins over whatever the generative parser returned for it.
type FieldHints struct {
	FilingStatus *string
	W2Wages      *float64
}

// Apply overwrites parsed fields with hinted values.
func (h FieldHints) Apply(fields *TaxFields) {
	if h.FilingStatus != nil {
		fields.FilingStatus = h.FilingStatus
	}
	if h.W2Wages != nil {
		fields.W2Wages = h.W2Wages
	}
}

func (h FieldHints) Empty() bool {
	return h.FilingStatus == nil && h.W2Wages == nil
}

// TaxExtraction is the persisted extraction record, one row per document.
type TaxExtraction struct {
	ID         int64     `json:"id"`
	OwnerID    string    `json:"owner_id"`
	DocumentID string    `json:"document_id"`
	Fields     TaxFields `json:"fields"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
