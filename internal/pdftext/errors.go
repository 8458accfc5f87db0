package pdftext

import (
	"errors"
	"fmt"
)

// Reason classifies why text could not be extracted.
type Reason string

const (
	ReasonUnreadable Reason = "unreadable"
	ReasonEncrypted  Reason = "encrypted"
	ReasonNoText     Reason = "no_text"
)

// ExtractionError is returned when no method produced usable text. The caller
// may fall back to manual text entry.
type ExtractionError struct {
	Reason Reason
	Path   string
	Err    error
}

func (e *ExtractionError) Error() string {
	switch e.Reason {
	case ReasonEncrypted:
		return fmt.Sprintf("pdf %s is encrypted and no valid password was supplied: %v", e.Path, e.Err)
	case ReasonNoText:
		return fmt.Sprintf("pdf %s has no extractable text layer (scanned images are not supported): %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("pdf %s is unreadable: %v", e.Path, e.Err)
	}
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// AsExtractionError reports whether err is an ExtractionError.
func AsExtractionError(err error) (*ExtractionError, bool) {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr, true
	}
	return nil, false
}

// errEncrypted marks method failures caused by encryption.
var errEncrypted = errors.New("encrypted pdf")
