package gemini

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
)

// ScreenshotSource provides the page screenshot for a tracked item
type ScreenshotSource interface {
	Screenshot(ctx context.Context, item domain.TrackedItem) ([]byte, error)
}

// FileScreenshots reads screenshots captured by the browser worker from
// <Dir>/<item id>.png
type FileScreenshots struct {
	Dir string
}

// Screenshot reads the PNG for item
func (f FileScreenshots) Screenshot(ctx context.Context, item domain.TrackedItem) ([]byte, error) {
	path := filepath.Join(f.Dir, strconv.FormatInt(item.ID, 10)+".png")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScreenshotNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read screenshot %s: %w", path, err)
	}
	return data, nil
}

// Extractor implements domain.ExtractionSource with screenshots and Gemini
type Extractor struct {
	client      *Client
	screenshots ScreenshotSource
}

// NewExtractor creates a new extractor
func NewExtractor(client *Client, screenshots ScreenshotSource) *Extractor {
	return &Extractor{client: client, screenshots: screenshots}
}

// Extract returns the raw model output for item and the model that
// answered. The model is reported on failure too when one was called.
func (e *Extractor) Extract(ctx context.Context, item domain.TrackedItem) (domain.Extraction, error) {
	image, err := e.screenshots.Screenshot(ctx, item)
	if err != nil {
		return domain.Extraction{}, err
	}

	raw, model, err := e.client.ExtractPrice(ctx, image, BuildPrompt(item))
	if err != nil {
		return domain.Extraction{Model: model}, err
	}

	e.client.logger.Debug("extraction received",
		zap.Int64("tracked_item_id", item.ID),
		zap.String("model", model),
	)
	return domain.Extraction{Raw: raw, Model: model}, nil
}
