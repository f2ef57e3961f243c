package dlp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/resilience"
)

// Info types requested from the inspection engine.
var inspectInfoTypes = []string{
	string(domain.CategorySSN),
	string(domain.CategoryPersonName),
	string(domain.CategoryAddress),
	string(domain.CategoryState),
	string(domain.CategoryPhone),
	string(domain.CategoryEmail),
	string(domain.CategoryBirthDate),
}

// Custom pattern catching formatted SSNs the built-in detector rejects as
// invalid (test documents use unissued numbers).
const ssnCustomPattern = `\b\d{3}-\d{2}-\d{4}\b`

// formLabelBlacklist holds single words the detector habitually misreads as
// person names on tax forms.
var formLabelBlacklist = map[string]bool{
	"firm": true, "name": true, "address": true, "city": true,
	"state": true, "zip": true, "date": true, "signature": true,
	"title": true, "employer": true, "spouse": true,
}

// Client calls the PII inspection service over HTTP. It owns the spaced-SSN
// pre-normalization and the form-label false-positive filter, so downstream
// consumers only ever see actionable findings.
type Client struct {
	baseURL      string
	minThreshold string
	httpClient   *http.Client
	executor     *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		minThreshold: "LIKELY",
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		executor:     executor,
	}
}

type inspectRequest struct {
	Text          string         `json:"text"`
	InfoTypes     []string       `json:"info_types"`
	CustomRegexes []customRegex  `json:"custom_regexes,omitempty"`
	MinLikelihood string         `json:"min_likelihood"`
	IncludeQuote  bool           `json:"include_quote"`
}

type customRegex struct {
	InfoType   string `json:"info_type"`
	Pattern    string `json:"pattern"`
	Likelihood string `json:"likelihood"`
}

type inspectResponse struct {
	Findings []struct {
		InfoType   string `json:"info_type"`
		Quote      string `json:"quote"`
		Likelihood string `json:"likelihood"`
		ByteStart  int    `json:"byte_start"`
		ByteEnd    int    `json:"byte_end"`
	} `json:"findings"`
}

func (c *Client) Detect(ctx context.Context, text string) ([]domain.Finding, error) {
	if c.baseURL == "" {
		return nil, domain.WrapError(domain.ErrNotConfigured, "pii detect", errNoEndpoint)
	}

	request := inspectRequest{
		Text:      normalizeSpacedSSNs(text),
		InfoTypes: inspectInfoTypes,
		CustomRegexes: []customRegex{{
			InfoType:   string(domain.CategorySSNPattern),
			Pattern:    ssnCustomPattern,
			Likelihood: "LIKELY",
		}},
		MinLikelihood: c.minThreshold,
		IncludeQuote:  true,
	}

	var response inspectResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/inspect", request, &response, "inspect")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "dlp.inspect", call, classifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("pii detect", err)
	}

	findings := make([]domain.Finding, 0, len(response.Findings))
	for _, f := range response.Findings {
		category := domain.PIICategory(f.InfoType)
		if category == domain.CategoryPersonName && isFormLabel(f.Quote) {
			continue
		}
		findings = append(findings, domain.Finding{
			Category:   category,
			Quote:      f.Quote,
			Confidence: f.Likelihood,
			ByteStart:  f.ByteStart,
			ByteEnd:    f.ByteEnd,
		})
	}
	return findings, nil
}

func isFormLabel(quote string) bool {
	return formLabelBlacklist[strings.ToLower(strings.TrimSpace(quote))]
}
