package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Parser turns OCR text of an approved return into the structured field set.
type Parser struct {
	client *Client
}

func NewParser(client *Client) *Parser {
	return &Parser{client: client}
}

func (p *Parser) ParseTaxFields(ctx context.Context, ocrText string, hints domain.FieldHints) (domain.TaxFields, error) {
	respText, err := p.client.generateJSON(ctx, buildTaxFieldPrompt(ocrText, hints))
	if err != nil {
		return domain.TaxFields{}, err
	}
	fields, err := parseTaxFieldJSON(respText)
	if err != nil {
		return domain.TaxFields{}, domain.WrapError(domain.ErrPipelineStage, "parse tax fields", err)
	}
	return fields, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", mapGenerateError(err)
	}
	return strings.TrimSpace(response.Response), nil
}
