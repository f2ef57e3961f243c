package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir(), "http://localhost:8080", []byte("secret"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestPutOpenRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, "users/u1/doc_original.pdf", "application/pdf", strings.NewReader("payload")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rc, err := s.Open(ctx, "users/u1/doc_original.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "users/u1/missing.pdf"); err != nil {
		t.Fatalf("Delete() on missing key error = %v", err)
	}
}

func TestCopyDuplicatesObject(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, "staging/doc.pdf", "application/pdf", strings.NewReader("artifact")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Copy(ctx, "staging/doc.pdf", "vault/u1/doc.pdf"); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	exists, err := s.Exists(ctx, "vault/u1/doc.pdf")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Fatalf("expected copied object to exist")
	}
}

func TestSignedURLVerification(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Put(ctx, "vault/u1/doc.pdf", "application/pdf", strings.NewReader("artifact")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	link, err := s.SignedURL(ctx, "vault/u1/doc.pdf", time.Minute)
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}
	if !strings.Contains(link, "sig=") || !strings.Contains(link, "expires=") {
		t.Fatalf("link = %s", link)
	}

	expires := time.Now().Add(time.Minute).Unix()
	sig := Sign([]byte("secret"), "vault/u1/doc.pdf", expires)
	if !Verify([]byte("secret"), "vault/u1/doc.pdf", expires, sig) {
		t.Fatalf("expected valid signature")
	}
	if Verify([]byte("secret"), "vault/u1/other.pdf", expires, sig) {
		t.Fatalf("signature must bind to the key")
	}
	if Verify([]byte("secret"), "vault/u1/doc.pdf", time.Now().Add(-time.Minute).Unix(), Sign([]byte("secret"), "vault/u1/doc.pdf", time.Now().Add(-time.Minute).Unix())) {
		t.Fatalf("expired link must not verify")
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	path, err := s.resolve("../../etc/passwd")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	if strings.Contains(path, "..") {
		t.Fatalf("traversal survived: %s", path)
	}
	if !strings.HasPrefix(path, s.basePath) {
		t.Fatalf("path escaped base: %s", path)
	}
}
