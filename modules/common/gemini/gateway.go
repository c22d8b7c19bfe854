package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"asset-studio-server/modules/asset"
	"asset-studio-server/modules/generation"
)

// Models - model names per capability
type Models struct {
	Describe        string
	Selector        string
	Image           string
	Video           string
	VideoResolution string
}

// Gateway implements the vision, text, image and video capabilities on top
// of one genai client.
type Gateway struct {
	client *genai.Client
	models Models
	log    zerolog.Logger
}

var (
	_ generation.VisionModel = (*Gateway)(nil)
	_ generation.TextModel   = (*Gateway)(nil)
	_ generation.ImageModel  = (*Gateway)(nil)
	_ generation.VideoModel  = (*Gateway)(nil)
)

func NewGateway(client *genai.Client, models Models, log zerolog.Logger) *Gateway {
	return &Gateway{client: client, models: models, log: log}
}

// DescribeImage sends the instruction and the photo as one user turn.
func (g *Gateway) DescribeImage(ctx context.Context, image asset.ProductImage, instruction string) (string, error) {
	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(image.Data, image.MIMEType),
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.models.Describe, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini describe call failed: %w", err)
	}
	return responseText(resp), nil
}

// SelectCategories asks for a JSON array restricted to allowed.
func (g *Gateway) SelectCategories(ctx context.Context, prompt string, allowed []string, maxCount int) (string, error) {
	schema := &genai.Schema{
		Type:        genai.TypeArray,
		Description: fmt.Sprintf("Up to %d marketing asset category identifiers.", maxCount),
		Items: &genai.Schema{
			Type: genai.TypeString,
			Enum: allowed,
		},
	}
	if maxCount > 0 {
		schema.MaxItems = genai.Ptr(int64(maxCount))
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr[float32](0.2),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.models.Selector, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini category selection failed: %w", err)
	}
	return responseText(resp), nil
}

// SupportsSourceImage is false for Imagen models, which are text-to-image only.
func (g *Gateway) SupportsSourceImage() bool {
	return !isImagenModel(g.models.Image)
}

func (g *Gateway) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.MediaPayload, error) {
	if isImagenModel(g.models.Image) {
		return g.generateWithImagen(ctx, req)
	}
	return g.generateWithGemini(ctx, req)
}

func (g *Gateway) generateWithImagen(ctx context.Context, req generation.ImageRequest) (*generation.MediaPayload, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.models.Image, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    string(req.AspectRatio),
	})
	if err != nil {
		return nil, fmt.Errorf("imagen call failed: %w", err)
	}
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		return &generation.MediaPayload{Data: generated.Image.ImageBytes, MIMEType: generated.Image.MIMEType}, nil
	}
	return nil, nil
}

func (g *Gateway) generateWithGemini(ctx context.Context, req generation.ImageRequest) (*generation.MediaPayload, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Source != nil && len(req.Source.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Source.Data, req.Source.MIMEType))
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.models.Image,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: string(req.AspectRatio),
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini image call failed: %w", err)
	}
	return inlineImage(resp), nil
}

// StartVideo submits a video job and returns its first snapshot.
func (g *Gateway) StartVideo(ctx context.Context, req generation.VideoRequest) (*generation.VideoOperation, error) {
	var image *genai.Image
	if req.Source != nil && len(req.Source.Data) > 0 {
		image = &genai.Image{ImageBytes: req.Source.Data, MIMEType: req.Source.MIMEType}
	}

	op, err := g.client.Models.GenerateVideos(ctx, g.models.Video, req.Prompt, image, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    string(req.AspectRatio),
		Resolution:     g.models.VideoResolution,
	})
	if err != nil {
		return nil, fmt.Errorf("veo call failed: %w", err)
	}
	g.log.Info().Str("operation", op.Name).Msg("video operation started")
	return convertOperation(op), nil
}

func (g *Gateway) PollVideo(ctx context.Context, op *generation.VideoOperation) (*generation.VideoOperation, error) {
	next, err := g.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("poll video operation %s: %w", op.Name, err)
	}
	return convertOperation(next), nil
}

// FetchVideo downloads a finished video through the Files service. Only
// Gemini API file URIs are downloadable; Vertex AI returns inline bytes.
func (g *Gateway) FetchVideo(ctx context.Context, location string) (*generation.MediaPayload, error) {
	if !strings.HasPrefix(location, "https://") && !strings.HasPrefix(location, "http://") {
		return nil, fmt.Errorf("unsupported video location %q", location)
	}

	data, err := g.client.Files.Download(ctx, genai.NewDownloadURIFromVideo(&genai.Video{URI: location}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to fetch video file: empty body")
	}
	return &generation.MediaPayload{Data: data, MIMEType: "video/mp4"}, nil
}

func convertOperation(op *genai.GenerateVideosOperation) *generation.VideoOperation {
	if op == nil {
		return nil
	}
	out := &generation.VideoOperation{Name: op.Name, Done: op.Done}
	if len(op.Error) > 0 {
		out.Error = operationError(op.Error)
	}
	if op.Response == nil {
		return out
	}
	for _, generated := range op.Response.GeneratedVideos {
		if generated == nil || generated.Video == nil {
			continue
		}
		if len(generated.Video.VideoBytes) > 0 {
			out.Video = &generation.MediaPayload{Data: generated.Video.VideoBytes, MIMEType: generated.Video.MIMEType}
		}
		out.Location = generated.Video.URI
		break
	}
	return out
}

func operationError(fields map[string]any) string {
	if msg, ok := fields["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("video operation failed: %v", fields)
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// inlineImage returns the first inline image part of any candidate.
func inlineImage(resp *genai.GenerateContentResponse) *generation.MediaPayload {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &generation.MediaPayload{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}
			}
		}
	}
	return nil
}

func isImagenModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "imagen")
}
