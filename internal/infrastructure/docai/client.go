package docai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/resilience"
)

// MaxPayloadBytes mirrors the processing engine's document size limit.
// Oversized payloads are rejected locally with the same error kind the
// remote rejection maps to, sparing the round trip.
const MaxPayloadBytes = 40 * 1024 * 1024

var errNoProcessor = errors.New("no processor endpoint configured")

// Client calls the OCR/text-extraction collaborator over HTTP and maps its
// structured result into domain OCR types.
type Client struct {
	baseURL     string
	processorID string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, processorID string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		processorID: processorID,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		executor:    executor,
	}
}

type processRequest struct {
	ProcessorID string `json:"processor_id"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type processResponse struct {
	Text  string `json:"text"`
	Pages []struct {
		PageNumber int     `json:"page_number"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
		Blocks     []struct {
			Text        string `json:"text"`
			BoundingBox struct {
				X      float64 `json:"x"`
				Y      float64 `json:"y"`
				Width  float64 `json:"width"`
				Height float64 `json:"height"`
			} `json:"bounding_box"`
		} `json:"blocks"`
	} `json:"pages"`
}

func (c *Client) Extract(ctx context.Context, payload []byte, contentType string) (*domain.OCRResult, error) {
	if c.baseURL == "" || c.processorID == "" {
		return nil, domain.WrapError(domain.ErrNotConfigured, "ocr extract", errNoProcessor)
	}
	if len(payload) > MaxPayloadBytes {
		return nil, domain.WrapError(domain.ErrSizeExceeded, "ocr extract", errPayloadTooLarge)
	}

	request := processRequest{
		ProcessorID: c.processorID,
		Content:     base64.StdEncoding.EncodeToString(payload),
		ContentType: contentType,
	}

	var response processResponse
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/process", request, &response, "process")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "docai.process", call, classifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, mapExtractError(err)
	}

	result := &domain.OCRResult{Text: response.Text}
	for _, page := range response.Pages {
		p := domain.Page{
			Number: page.PageNumber,
			Width:  page.Width,
			Height: page.Height,
		}
		for _, block := range page.Blocks {
			p.Blocks = append(p.Blocks, domain.Block{
				Text: block.Text,
				Box: domain.BoundingBox{
					X:      block.BoundingBox.X,
					Y:      block.BoundingBox.Y,
					Width:  block.BoundingBox.Width,
					Height: block.BoundingBox.Height,
				},
			})
		}
		result.Pages = append(result.Pages, p)
	}
	return result, nil
}

// mapExtractError surfaces the engine's size rejection as its own kind so the
// validator can distinguish it from genuine failure.
func mapExtractError(err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusRequestEntityTooLarge || mentionsSizeLimit(statusErr.Body) {
			return domain.WrapError(domain.ErrSizeExceeded, "ocr extract", err)
		}
	}
	return wrapTemporaryIfNeeded("ocr extract", err)
}

func mentionsSizeLimit(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "exceeds the limit") || strings.Contains(lower, "document size")
}
