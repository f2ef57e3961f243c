package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

type repoFake struct {
	mu   sync.Mutex
	docs map[string]*domain.Document

	createErr       error
	updateStatusErr error
	saveOutcomeErr  error

	statusHistory []domain.DocumentStatus
}

func newRepoFake(docs ...*domain.Document) *repoFake {
	f := &repoFake{docs: map[string]*domain.Document{}}
	for _, doc := range docs {
		copyDoc := *doc
		f.docs[doc.ID] = &copyDoc
	}
	return f
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *repoFake) ListByOwner(_ context.Context, ownerID string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []domain.Document
	for _, doc := range f.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, failureReason string) error {
	if f.updateStatusErr != nil {
		return f.updateStatusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", fmt.Errorf("id %s", id))
	}
	doc.Status = status
	doc.FailureReason = failureReason
	f.statusHistory = append(f.statusHistory, status)
	return nil
}

func (f *repoFake) SaveRedactionOutcome(_ context.Context, id string, status domain.DocumentStatus, redactedLocation string, piiCount int, report *domain.ValidationReport, failureReason string) error {
	if f.saveOutcomeErr != nil {
		return f.saveOutcomeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "save outcome", fmt.Errorf("id %s", id))
	}
	doc.Status = status
	doc.RedactedLocation = redactedLocation
	if status == domain.StatusRedactionFailed {
		doc.OriginalLocation = ""
	}
	doc.PIICount = piiCount
	doc.Validation = report
	doc.FailureReason = failureReason
	f.statusHistory = append(f.statusHistory, status)
	return nil
}

func (f *repoFake) SaveApproval(_ context.Context, id string, vaultLocation string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "save approval", fmt.Errorf("id %s", id))
	}
	doc.Status = domain.StatusApproved
	doc.VaultLocation = vaultLocation
	doc.OriginalLocation = ""
	doc.RedactedLocation = ""
	f.statusHistory = append(f.statusHistory, domain.StatusApproved)
	return nil
}

func (f *repoFake) UpdateExtractionStatus(_ context.Context, id string, status domain.ExtractionStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update extraction status", fmt.Errorf("id %s", id))
	}
	doc.ExtractionStatus = status
	doc.FailureReason = errMessage
	return nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id %s", id))
	}
	delete(f.docs, id)
	return nil
}

type extractionRepoFake struct {
	records   map[string]*domain.TaxExtraction
	upsertErr error
}

func newExtractionRepoFake() *extractionRepoFake {
	return &extractionRepoFake{records: map[string]*domain.TaxExtraction{}}
}

func (f *extractionRepoFake) Upsert(_ context.Context, rec *domain.TaxExtraction) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	rec.ID = int64(len(f.records) + 1)
	copyRec := *rec
	f.records[rec.DocumentID] = &copyRec
	return nil
}

func (f *extractionRepoFake) GetByDocument(_ context.Context, documentID string) (*domain.TaxExtraction, error) {
	rec, ok := f.records[documentID]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get extraction", fmt.Errorf("document %s", documentID))
	}
	copyRec := *rec
	return &copyRec, nil
}

func (f *extractionRepoFake) ListByOwner(_ context.Context, ownerID string) ([]domain.TaxExtraction, error) {
	var records []domain.TaxExtraction
	for _, rec := range f.records {
		if rec.OwnerID == ownerID {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (f *extractionRepoFake) DeleteByDocument(_ context.Context, documentID string) error {
	delete(f.records, documentID)
	return nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr    error
	copyErr   error
	deleteErr map[string]error
	signedURL string
	signErr   error

	deleted []string
}

func newStorageFake() *storageFake {
	return &storageFake{
		objects:   map[string][]byte{},
		deleteErr: map[string]error{},
		signedURL: "https://signed.example/artifact",
	}
}

func (f *storageFake) Put(_ context.Context, key, _ string, data io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	if err := f.deleteErr[key]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *storageFake) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *storageFake) Copy(_ context.Context, srcKey, dstKey string) error {
	if f.copyErr != nil {
		return f.copyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[srcKey]
	if !ok {
		return fmt.Errorf("object %s not found", srcKey)
	}
	f.objects[dstKey] = append([]byte(nil), raw...)
	return nil
}

func (f *storageFake) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return f.signedURL + "?key=" + key, nil
}

type queueFake struct {
	redactIDs  []string
	extractIDs []string
	publishErr error
}

func (f *queueFake) PublishRedactionRequested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.redactIDs = append(f.redactIDs, documentID)
	return nil
}

func (f *queueFake) PublishExtractionRequested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.extractIDs = append(f.extractIDs, documentID)
	return nil
}

func (f *queueFake) SubscribeRedactionRequested(context.Context, func(context.Context, string) error) error {
	return fmt.Errorf("not implemented")
}

func (f *queueFake) SubscribeExtractionRequested(context.Context, func(context.Context, string) error) error {
	return fmt.Errorf("not implemented")
}

type auditFake struct {
	events []ports.AuditEvent
}

func (f *auditFake) Emit(_ context.Context, event ports.AuditEvent) {
	f.events = append(f.events, event)
}

func (f *auditFake) actions() []string {
	var actions []string
	for _, event := range f.events {
		actions = append(actions, event.Action)
	}
	return actions
}

type recognizerFake struct {
	result *domain.OCRResult
	err    error
	calls  int
}

func (f *recognizerFake) Extract(context.Context, []byte, string) (*domain.OCRResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.OCRResult{Text: "redacted content"}, nil
}

type detectorFake struct {
	findings []domain.Finding
	err      error
}

func (f *detectorFake) Detect(context.Context, string) ([]domain.Finding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.findings, nil
}

type matcherFake struct {
	regions []domain.Region
}

func (f *matcherFake) Match(*domain.OCRResult, []domain.Finding) []domain.Region {
	return f.regions
}

type rendererFake struct {
	output []byte
	err    error
}

func (f *rendererFake) Render(context.Context, []byte, string, []domain.Region) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.output != nil {
		return f.output, nil
	}
	return []byte("%PDF-redacted"), nil
}

type probeFake struct {
	hasText bool
	err     error
}

func (f *probeFake) HasTextLayer([]byte, string) (bool, error) {
	return f.hasText, f.err
}

type parserFake struct {
	fields     domain.TaxFields
	err        error
	seenHints  domain.FieldHints
	calledWith string
}

func (f *parserFake) ParseTaxFields(_ context.Context, ocrText string, hints domain.FieldHints) (domain.TaxFields, error) {
	f.calledWith = ocrText
	f.seenHints = hints
	if f.err != nil {
		return domain.TaxFields{}, f.err
	}
	return f.fields, nil
}

type hintsFake struct {
	hints domain.FieldHints
}

func (f *hintsFake) ExtractHints(string) domain.FieldHints {
	return f.hints
}
