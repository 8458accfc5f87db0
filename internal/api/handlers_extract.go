package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime"
	"net/http"
	"unicode/utf8"

	"github.com/dgallion1/pdfqa/internal/pdftext"
)

type extractRequest struct {
	PDFData  string `json:"pdf_data"`
	Filename string `json:"filename"`
}

// handleExtract returns the text of one PDF without asking any questions.
// The body is either JSON with base64 pdf_data or a multipart "file".
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var (
		filename string
		data     []byte
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		// base64 inflates by 4/3.
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*4/3+1024)
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.PDFData == "" {
			jsonError(w, "pdf_data is required", http.StatusBadRequest)
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(req.PDFData)
		if err != nil {
			jsonError(w, "pdf_data is not valid base64", http.StatusBadRequest)
			return
		}
		filename = sanitizeFilename(req.Filename)
		if filename == "unnamed" {
			filename = "upload.pdf"
		}
		data = decoded
	} else {
		up, code, err := s.readUpload(w, r, false)
		if err != nil {
			jsonError(w, err.Error(), code)
			return
		}
		defer r.MultipartForm.RemoveAll()
		filename, data = up.filename, up.data
	}

	doc, err := s.extractor.Extract(r.Context(), bytes.NewReader(data), filename)
	if err != nil {
		if extErr, ok := pdftext.AsExtractionError(err); ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   extErr.Error(),
				"reason":  extErr.Reason,
			})
			return
		}
		s.log.Error("extract failed", "file", filename, "error", err)
		jsonError(w, "extraction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"text":    doc.Text,
		"length":  utf8.RuneCountInString(doc.Text),
		"pages":   doc.PageCount(),
		"method":  doc.Method,
	})
}
