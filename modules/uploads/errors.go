package uploads

import "errors"

// Sentinel errors for upload operations.
var (
	// ErrUploadRejected is returned when a file fails type or size validation.
	ErrUploadRejected = errors.New("upload rejected")

	// ErrTooLarge is wrapped by ErrUploadRejected when the size limit is exceeded.
	ErrTooLarge = errors.New("file too large")

	// ErrDocumentNotFound is returned when no stored document has the requested id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidDocumentID is returned when the document id is not a UUID.
	ErrInvalidDocumentID = errors.New("invalid document ID format")
)
