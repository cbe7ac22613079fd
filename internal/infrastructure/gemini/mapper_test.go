package gemini

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricespy/backend/internal/domain"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain json", `{"price": 45.99, "original_price": 114.99, "currency": "EUR"}`},
		{"fenced json", "```json\n{\"price\": 45.99, \"original_price\": 114.99, \"currency\": \"EUR\"}\n```"},
		{"bare fence", "```\n{\"price\": 45.99, \"original_price\": 114.99, \"currency\": \"EUR\"}```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ParseExtraction(geminiResponse(tt.text))
			require.NoError(t, err)
			assert.Equal(t, json.Number("45.99"), raw["price"])
			assert.Equal(t, json.Number("114.99"), raw["original_price"])
			assert.Equal(t, "EUR", raw["currency"])
		})
	}
}

func TestParseExtraction_JoinsParts(t *testing.T) {
	body := []byte(`{"candidates":[{"content":{"parts":[{"text":"{\"price\": "},{"text":"2.5}"}]}}]}`)

	raw, err := ParseExtraction(body)
	require.NoError(t, err)
	assert.Equal(t, json.Number("2.5"), raw["price"])
}

func TestParseExtraction_APIFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>bad gateway</html>`},
		{"no candidates", `{"candidates": []}`},
		{"prompt blocked", `{"promptFeedback": {"blockReason": "SAFETY"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExtraction([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrVisionAPIFailure), "got %v", err)
		})
	}
}

func TestParseExtraction_MalformedPayload(t *testing.T) {
	for _, text := range []string{"", "   ", "[1, 2]", "null", "the price is 6.99", "{\"price\": "} {
		t.Run(text, func(t *testing.T) {
			_, err := ParseExtraction(geminiResponse(text))
			require.Error(t, err)

			var validationErr *domain.ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Equal(t, domain.ValidationMalformedPayload, validationErr.Kind)
			assert.Equal(t, "malformed_payload", domain.ErrorKind(err))
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
	assert.Equal(t, "", stripCodeFence("```json\n```"))
}
