package port

import (
	"context"

	"tariffbench/internal/domain"
)

// ClassifyInput carries one line item's context for HTS prediction.
type ClassifyInput struct {
	Description string
	PartNumber  string
	Quantity    float64
	Unit        string
}

// Classifier abstracts the LLM-backed HTS code prediction.
// Implementations must validate the model's response before returning it;
// a response that fails validation surfaces as a MalformedResponseError.
type Classifier interface {
	Classify(ctx context.Context, input ClassifyInput) (*domain.Classification, error)
}
