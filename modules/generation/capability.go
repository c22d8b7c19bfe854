package generation

import (
	"context"

	"asset-studio-server/modules/asset"
)

// VisionModel describes an image with a text instruction.
type VisionModel interface {
	DescribeImage(ctx context.Context, image asset.ProductImage, instruction string) (string, error)
}

// TextModel returns the raw text of a category-selection call. The response
// is constrained to a JSON array of values from allowed, at most maxCount long.
type TextModel interface {
	SelectCategories(ctx context.Context, prompt string, allowed []string, maxCount int) (string, error)
}

// ImageRequest - one image synthesis call
type ImageRequest struct {
	Prompt      string
	AspectRatio asset.AspectRatio
	Source      *asset.ProductImage
}

// MediaPayload is raw generated media.
type MediaPayload struct {
	Data     []byte
	MIMEType string
}

// ImageModel synthesizes a single image. A nil or empty payload means the
// backend returned nothing usable.
type ImageModel interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*MediaPayload, error)
	SupportsSourceImage() bool
}

// VideoRequest - one video synthesis call
type VideoRequest struct {
	Prompt      string
	AspectRatio asset.AspectRatio
	Source      *asset.ProductImage
}

// VideoOperation is a snapshot of a long-running video job.
type VideoOperation struct {
	Name string
	Done bool
	// Error is the backend's failure message for a finished operation.
	Error string
	// Location is the fetchable URI of the finished video, if any.
	Location string
	// Video holds inline bytes when the backend returns them directly.
	Video *MediaPayload
}

// VideoModel starts, polls and downloads long-running video jobs.
type VideoModel interface {
	StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error)
	FetchVideo(ctx context.Context, location string) (*MediaPayload, error)
}
