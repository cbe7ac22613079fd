package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pricespy/backend/internal/domain"
)

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// ParseExtraction converts a generateContent response into the model's raw
// JSON object. Numbers are kept as json.Number so the validator sees exactly
// what the model wrote.
func ParseExtraction(body []byte) (domain.RawExtraction, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrVisionAPIFailure, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", domain.ErrVisionAPIFailure, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: response has no candidates", domain.ErrVisionAPIFailure)
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	payload := stripCodeFence(text.String())
	if payload == "" {
		return nil, &domain.ValidationError{Kind: domain.ValidationMalformedPayload, Field: "response", Value: ""}
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(payload)))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		return nil, &domain.ValidationError{Kind: domain.ValidationMalformedPayload, Field: "response", Value: truncate(payload, 200)}
	}
	return domain.RawExtraction(raw), nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add even in
// JSON response mode
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
