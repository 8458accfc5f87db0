package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// upload is a file (or pasted text) read from a multipart request.
type upload struct {
	filename string
	data     []byte
	manual   bool
}

// readUpload parses a multipart form and returns its "file" part. When
// allowText is set, a "text" field is accepted in place of a file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, allowText bool) (*upload, int, error) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
	}

	if allowText {
		if text := r.FormValue("text"); strings.TrimSpace(text) != "" {
			name := sanitizeFilename(r.FormValue("filename"))
			if name == "unnamed" {
				name = "pasted.txt"
			}
			return &upload{filename: name, data: []byte(text), manual: true}, 0, nil
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return &upload{filename: filename, data: data}, 0, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
