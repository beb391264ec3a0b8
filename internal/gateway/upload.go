// ABOUTME: Image upload handler with content sniffing
// ABOUTME: Stores files under the uploads dir and returns their public /uploads path

package gateway

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	Success bool   `json:"success"`
	File    string `json:"file"`
}

// handleUpload handles POST /api/upload.
// Accepts a multipart form with an "image" field. The content type is
// determined by sniffing the bytes, never by trusting the client's
// filename or declared type.
func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, g.config.Uploads.MaxSizeBytes)

	file, _, err := r.FormFile("image")
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		g.sendJSONError(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	name := "upload_" + uuid.New().String() + mtype.Extension()
	dest := filepath.Join(g.config.Uploads.Dir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		g.logger.Error("failed to write upload", "error", err, "path", dest)
		g.sendJSONError(w, http.StatusInternalServerError, "server error")
		return
	}

	g.logger.Debug("upload stored", "file", name, "type", mtype.String(), "bytes", len(data))
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, File: "/uploads/" + name})
}
