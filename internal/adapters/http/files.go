package httpadapter

import (
	"io"
	"net/http"
	"strconv"

	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/storage/localfs"
)

// FileHandler streams locally stored artifacts for signed links minted by the
// localfs backend. The signature gates access; no session is involved.
type FileHandler struct {
	storage ports.BlobStorage
	secret  []byte
}

func NewFileHandler(storage ports.BlobStorage, secret []byte) *FileHandler {
	return &FileHandler{storage: storage, secret: secret}
}

func (h *FileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	key := query.Get("key")
	sig := query.Get("sig")
	expires, err := strconv.ParseInt(query.Get("expires"), 10, 64)
	if err != nil || key == "" || sig == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed file link"})
		return
	}

	if !localfs.Verify(h.secret, key, expires, sig) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid or expired link"})
		return
	}

	rc, err := h.storage.Open(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artifact not found"})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = io.Copy(w, rc)
}
