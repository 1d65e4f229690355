package domain

import "errors"

var (
	// ErrUnreadableDocument is the only run-fatal error: the input bytes are
	// not a decodable PDF, or the PDF is encrypted and no password worked.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrExtractionFailed marks a per-page OCR failure. The page is carried
	// forward as empty text; the run continues.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrClassificationUnavailable marks a line item whose LLM classification
	// could not be obtained after retries were exhausted.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrMalformedResponse marks an LLM response that failed schema
	// validation. It is never retried.
	ErrMalformedResponse = errors.New("malformed classifier response")

	// ErrTariffNotFound marks a predicted code with no reference entry at any
	// prefix level.
	ErrTariffNotFound = errors.New("tariff entry not found")
)
