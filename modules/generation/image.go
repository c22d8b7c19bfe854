package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
)

// ErrGenerationFailed marks a category whose backend call produced no media.
var ErrGenerationFailed = errors.New("generation failed")

// Task is one category to generate within a run.
type Task struct {
	Category    asset.Category
	Description asset.ProductDescription
	Source      asset.ProductImage
}

// AssetGenerator produces the asset for one task.
type AssetGenerator interface {
	Generate(ctx context.Context, task Task) (asset.GeneratedAsset, error)
}

// ImageGenerator handles the image-producing categories.
type ImageGenerator struct {
	model ImageModel
	log   zerolog.Logger
}

func NewImageGenerator(model ImageModel, log zerolog.Logger) *ImageGenerator {
	return &ImageGenerator{model: model, log: log}
}

func (g *ImageGenerator) Generate(ctx context.Context, task Task) (asset.GeneratedAsset, error) {
	prompt, aspect, err := asset.BuildPrompt(task.Category, task.Description)
	if err != nil {
		return asset.GeneratedAsset{}, err
	}

	req := ImageRequest{Prompt: prompt, AspectRatio: aspect}
	if g.model.SupportsSourceImage() && len(task.Source.Data) > 0 {
		src := task.Source
		req.Source = &src
	}

	g.log.Debug().Str("category", string(task.Category)).Str("aspect", string(aspect)).
		Bool("conditioned", req.Source != nil).Msg("generating image")

	payload, err := g.model.GenerateImage(ctx, req)
	if err != nil {
		return asset.GeneratedAsset{}, fmt.Errorf("%w for category %s: %w", ErrGenerationFailed, task.Category, err)
	}
	if payload == nil || len(payload.Data) == 0 {
		return asset.GeneratedAsset{}, fmt.Errorf("%w for category %s", ErrGenerationFailed, task.Category)
	}

	mimeType := payload.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return asset.NewGeneratedAsset(task.Category, prompt, payload.Data, mimeType), nil
}
