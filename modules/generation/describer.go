package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
)

// DescribeInstruction is sent alongside the uploaded photo.
const DescribeInstruction = "Analyze this product image and describe the product in a short, descriptive phrase suitable for an image generation prompt. For example: 'A stylish red and black gaming headset'."

// ErrEmptyDescription is returned when the model answers with blank text.
var ErrEmptyDescription = errors.New("product description is empty")

// Describer turns the uploaded photo into a ProductDescription.
type Describer struct {
	model VisionModel
	log   zerolog.Logger
}

func NewDescriber(model VisionModel, log zerolog.Logger) *Describer {
	return &Describer{model: model, log: log}
}

// Describe - one call, no retry
func (d *Describer) Describe(ctx context.Context, image asset.ProductImage) (asset.ProductDescription, error) {
	text, err := d.model.DescribeImage(ctx, image, DescribeInstruction)
	if err != nil {
		return "", fmt.Errorf("describe product: %w", err)
	}

	desc := strings.TrimSpace(text)
	desc = strings.Trim(desc, `"'`)
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", ErrEmptyDescription
	}

	d.log.Debug().Str("description", desc).Msg("product described")
	return asset.ProductDescription(desc), nil
}
