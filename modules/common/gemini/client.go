package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"asset-studio-server/modules/common/config"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewClient - genai client for the configured backend (Gemini API key or Vertex AI)
func NewClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*genai.Client, error) {
	switch cfg.Backend {
	case config.BackendVertex:
		creds, err := vertexCredentials(cfg, log)
		if err != nil {
			return nil, err
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Backend:     genai.BackendVertexAI,
			Project:     cfg.VertexProject,
			Location:    cfg.VertexLocation,
			Credentials: creds,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
		}
		log.Info().Str("project", cfg.VertexProject).Str("location", cfg.VertexLocation).Msg("vertex ai client initialized")
		return client, nil

	default:
		if cfg.GeminiAPIKey == "" {
			return nil, config.ErrMissingAPIKey
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     cfg.GeminiAPIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: NewHTTPClient(cfg.MaxVideoBytes),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		log.Info().Msg("gemini api client initialized")
		return client, nil
	}
}

// vertexCredentials resolves credentials in order: inline JSON, JSON file,
// then Application Default Credentials (nil lets the SDK detect them).
func vertexCredentials(cfg *config.Config, log zerolog.Logger) (*auth.Credentials, error) {
	var data []byte
	switch {
	case cfg.VertexCredentialsJSON != "":
		log.Info().Msg("using VERTEXAI_CREDENTIALS_JSON")
		data = []byte(cfg.VertexCredentialsJSON)
	case cfg.VertexCredentialsPath != "":
		log.Info().Str("path", cfg.VertexCredentialsPath).Msg("using credentials file")
		raw, err := os.ReadFile(cfg.VertexCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		data = raw
	default:
		log.Warn().Msg("no explicit credentials, using application default credentials")
		return nil, nil
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON credentials")
	}
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes:          []string{cloudPlatformScope},
		CredentialsJSON: data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return creds, nil
}
