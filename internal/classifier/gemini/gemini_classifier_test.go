package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariffbench/internal/classifier"
	"tariffbench/internal/classifier/gemini"
	"tariffbench/internal/config"
	"tariffbench/internal/port"
)

func newTestClassifier(serverURL string) *gemini.Classifier {
	cfg := &config.ProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-gemini-key",
		DefaultModel: "gemini-2.0-flash",
		TimeoutSecs:  30,
	}
	return gemini.NewClassifierWithEndpoint(cfg, serverURL)
}

func successResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{
						{"text": content},
					},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestGeminiClassifier_Success(t *testing.T) {
	llmJSON := `{"code":"6109.10.00","confidence":0.91,"rationale":"Cotton t-shirt, knitted"}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-gemini-key", r.Header.Get("x-goog-api-key"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(successResponse(llmJSON)))
	}))
	defer server.Close()

	cls, err := newTestClassifier(server.URL).Classify(context.Background(),
		port.ClassifyInput{Description: "Cotton t-shirt"})

	require.NoError(t, err)
	assert.Equal(t, "6109.10.00", cls.Code)
	assert.Equal(t, "gemini-2.0-flash", cls.ModelUsed)
}

func TestGeminiClassifier_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClassifier(server.URL).Classify(context.Background(),
		port.ClassifyInput{Description: "Cotton t-shirt"})

	var rl *classifier.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "gemini", rl.Provider)
	assert.Equal(t, float64(12), rl.RetryAfter.Seconds())
}

func TestGeminiClassifier_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newTestClassifier(server.URL).Classify(context.Background(),
		port.ClassifyInput{Description: "Cotton t-shirt"})

	assert.ErrorContains(t, err, "no candidates")
}
