package model

import (
	"errors"
	"fmt"
)

var (
	// ErrFatalSetup signals that the records or the document could not be loaded.
	ErrFatalSetup = errors.New("fatal setup error")
	// ErrAuth signals missing or rejected credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrMatchNotFound signals that no fragment cleared the similarity threshold.
	ErrMatchNotFound = errors.New("match not found")
	// ErrAssociationNotFound signals that no image qualified below the match.
	ErrAssociationNotFound = errors.New("association not found")
	// ErrExtraction signals unreadable image content.
	ErrExtraction = errors.New("image extraction failed")
	// ErrUpload signals a failed upload or an unusable upload response.
	ErrUpload = errors.New("upload failed")
)

// SetupError wraps ErrFatalSetup with the input that could not be loaded.
type SetupError struct {
	Source string // "records", "document", "config"
	Path   string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrFatalSetup.Error(), e.Source, e.Path, e.Err)
}

func (e *SetupError) Unwrap() []error { return []error{ErrFatalSetup, e.Err} }

// NewSetupError creates a fatal setup error.
func NewSetupError(source, path string, err error) error {
	return &SetupError{Source: source, Path: path, Err: err}
}

// AuthError wraps ErrAuth. Status is the HTTP status, 0 when no response arrived.
type AuthError struct {
	Status int
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	msg := ErrAuth.Error() + ": " + e.Reason
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() []error { return []error{ErrAuth, e.Err} }

// ExtractionError wraps ErrExtraction with the image handle.
type ExtractionError struct {
	ObjectNumber int
	Err          error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: object %d: %v", ErrExtraction.Error(), e.ObjectNumber, e.Err)
}

func (e *ExtractionError) Unwrap() []error { return []error{ErrExtraction, e.Err} }

// UploadError wraps ErrUpload. Status is 0 for transport failures.
type UploadError struct {
	Filename string
	Status   int
	Reason   string
	Err      error
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrUpload.Error(), e.Filename, e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UploadError) Unwrap() []error { return []error{ErrUpload, e.Err} }
