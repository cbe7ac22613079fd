package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricespy/backend/internal/domain"
)

var testItem = domain.TrackedItem{
	ID:          42,
	ProductName: "Cola Zero",
	Category:    "drinks",
	StoreName:   "Jumbo",
	TargetSize:  "330 ml",
	Packaging:   domain.PackagingSpec{QuantitySize: 330, QuantityUnit: "ml", ItemsPerLot: 6},
}

func TestFileScreenshots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "42.png"), pngImage, 0o644))

	screenshots := FileScreenshots{Dir: dir}

	data, err := screenshots.Screenshot(context.Background(), testItem)
	require.NoError(t, err)
	assert.Equal(t, pngImage, data)

	_, err = screenshots.Screenshot(context.Background(), domain.TrackedItem{ID: 7})
	assert.True(t, errors.Is(err, domain.ErrScreenshotNotFound))
	assert.Equal(t, "screenshot_not_found", domain.ErrorKind(err))
}

func TestExtractor_Extract(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "42.png"), pngImage, 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.NotEmpty(t, req.Contents) {
			assert.Contains(t, req.Contents[0].Parts[0].Text, "Expected product: Cola Zero")
		}

		w.WriteHeader(http.StatusOK)
		w.Write(geminiResponse(`{"price": 6.00, "currency": "EUR", "is_available": true}`))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL)
	extractor := NewExtractor(client, FileScreenshots{Dir: dir})

	var _ domain.ExtractionSource = extractor

	extraction, err := extractor.Extract(context.Background(), testItem)
	require.NoError(t, err)
	assert.Equal(t, json.Number("6.00"), extraction.Raw["price"])
	assert.NotEmpty(t, extraction.Model)

	_, err = extractor.Extract(context.Background(), domain.TrackedItem{ID: 99})
	assert.True(t, errors.Is(err, domain.ErrScreenshotNotFound))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(testItem)

	assert.Contains(t, prompt, `"is_blocked"`)
	assert.Contains(t, prompt, "- Expected product: Cola Zero")
	assert.Contains(t, prompt, "- Category: drinks")
	assert.Contains(t, prompt, "- Store: Jumbo")
	assert.Contains(t, prompt, "- Packaging: 6 x 330 ml")
	assert.Contains(t, prompt, "- Requested size: 330 ml.")

	prompt = BuildPrompt(domain.TrackedItem{
		ProductName: "Rice",
		Packaging:   domain.PackagingSpec{QuantitySize: 1.5, QuantityUnit: "kg", ItemsPerLot: 1},
	})
	assert.Contains(t, prompt, "- Packaging: 1.5 kg")
	assert.NotContains(t, prompt, "Category")
	assert.NotContains(t, prompt, "Requested size")
}
