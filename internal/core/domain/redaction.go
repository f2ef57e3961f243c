package domain

// PIICategory names carry the detection engine's info-type vocabulary.
type PIICategory string

const (
	CategorySSN        PIICategory = "US_SOCIAL_SECURITY_NUMBER"
	CategorySSNPattern PIICategory = "SSN_PATTERN"
	CategoryPersonName PIICategory = "PERSON_NAME"
	CategoryAddress    PIICategory = "STREET_ADDRESS"
	CategoryState      PIICategory = "US_STATE"
	CategoryPhone      PIICategory = "PHONE_NUMBER"
	CategoryEmail      PIICategory = "EMAIL_ADDRESS"
	CategoryBirthDate  PIICategory = "DATE_OF_BIRTH"

	// CategoryResidualText marks a rebuilt artifact that still carries an
	// extractable text layer. It is produced by the validator, never by the
	// detection engine.
	CategoryResidualText PIICategory = "RESIDUAL_TEXT_LAYER"
)

// IsNationalID reports whether the category denotes a national identification
// number. That is the one category whose leakage is unacceptable: findings in
// it get format-normalized search variants and a spatial label fallback.
func (c PIICategory) IsNationalID() bool {
	return c == CategorySSN || c == CategorySSNPattern
}

// Finding is one detected span of sensitive text. Ephemeral: produced by the
// detection collaborator and consumed within a single pipeline run.
type Finding struct {
	Category   PIICategory `json:"category"`
	Quote      string      `json:"quote"`
	Confidence string      `json:"confidence"`
	ByteStart  int         `json:"byte_start"`
	ByteEnd    int         `json:"byte_end"`
}

// BoundingBox is page-relative with every dimension in [0,1].
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Block is one OCR text block with its normalized position on the page.
type Block struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"bounding_box"`
}

// Page holds the OCR blocks of one page. Width/Height are the physical page
// dimensions in points, used later to size the rebuilt output page.
type Page struct {
	Number int     `json:"page_number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Blocks []Block `json:"blocks"`
}

// OCRResult is the text-extraction collaborator's output for one document.
type OCRResult struct {
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
}

// Region is a page-relative rectangle slated for irreversible overwrite.
type Region struct {
	Page      int         `json:"page_number"`
	Box       BoundingBox `json:"bounding_box"`
	Category  PIICategory `json:"pii_type"`
	Quote     string      `json:"text"`
	BlockText string      `json:"block_text"`
}

// RegionKey dedupes regions within one run so identical PII appearing in
// duplicate columns is painted once.
type RegionKey struct {
	Page     int
	Box      BoundingBox
	Category PIICategory
}

func (r Region) Key() RegionKey {
	return RegionKey{Page: r.Page, Box: r.Box, Category: r.Category}
}
