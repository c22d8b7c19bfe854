package asset

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// ProductDescription is the short phrase every prompt of a run is built from.
type ProductDescription string

// ProductImage - uploaded source photo
type ProductImage struct {
	Data     []byte
	MIMEType string
}

// GeneratedAsset is one successful generation, never mutated after creation.
type GeneratedAsset struct {
	Category       Category  `json:"category"`
	Title          string    `json:"title"`
	ResultLocation string    `json:"resultLocation"`
	MediaKind      MediaKind `json:"mediaKind"`
	PromptUsed     string    `json:"promptUsed"`
	MIMEType       string    `json:"mimeType"`
	FileName       string    `json:"fileName"`
}

// GenerationResult is the aggregate of one run.
type GenerationResult struct {
	Description      ProductDescription  `json:"description"`
	SuccessfulAssets []GeneratedAsset    `json:"successfulAssets"`
	FailedCategories []Category          `json:"failedCategories"`
	FailureReasons   map[Category]string `json:"failureReasons,omitempty"`
}

// NewGeneratedAsset packs a generated payload as a data URL record.
func NewGeneratedAsset(category Category, prompt string, data []byte, mimeType string) GeneratedAsset {
	if mimeType == "" {
		mimeType = defaultMIME(category.Kind())
	}
	return GeneratedAsset{
		Category:       category,
		Title:          category.Title(),
		ResultLocation: DataURL(data, mimeType),
		MediaKind:      category.Kind(),
		PromptUsed:     prompt,
		MIMEType:       mimeType,
		FileName:       FileName(category.Title(), category.Kind(), mimeType),
	}
}

// DataURL - data:<mime>;base64,<payload>
func DataURL(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FileName derives the download name: whitespace runs become underscores.
func FileName(title string, kind MediaKind, mimeType string) string {
	base := whitespaceRun.ReplaceAllString(strings.TrimSpace(title), "_")
	return base + "." + extensionFor(kind, mimeType)
}

func extensionFor(kind MediaKind, mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/png":
		return "png"
	case "video/webm":
		return "webm"
	case "video/mp4":
		return "mp4"
	}
	if kind == MediaVideo {
		return "mp4"
	}
	return "png"
}

func defaultMIME(kind MediaKind) string {
	if kind == MediaVideo {
		return "video/mp4"
	}
	return "image/png"
}
