package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
)

// Selector picks the categories worth generating for a product.
type Selector struct {
	model    TextModel
	maxCount int
	fallback []asset.Category
	log      zerolog.Logger
}

// NewSelector caps maxCount to the category limit. A nil fallback means
// asset.DefaultCategories; an empty non-nil one disables the fallback.
func NewSelector(model TextModel, maxCount int, fallback []asset.Category, log zerolog.Logger) *Selector {
	if maxCount <= 0 || maxCount > len(asset.AllCategories()) {
		maxCount = len(asset.AllCategories())
	}
	if fallback == nil {
		fallback = asset.DefaultCategories
	}
	return &Selector{
		model:    model,
		maxCount: maxCount,
		fallback: capCategories(fallback, maxCount),
		log:      log,
	}
}

// Select never fails: a provider error, malformed JSON or an empty parse all
// yield the fallback set. The result is empty only if the fallback is empty.
func (s *Selector) Select(ctx context.Context, description asset.ProductDescription) ([]asset.Category, error) {
	allowed := make([]string, 0, len(asset.AllCategories()))
	for _, c := range asset.AllCategories() {
		allowed = append(allowed, string(c))
	}

	raw, err := s.model.SelectCategories(ctx, selectionPrompt(description, allowed, s.maxCount), allowed, s.maxCount)
	if err != nil {
		s.log.Warn().Err(err).Msg("category selection failed, using defaults")
		return s.Fallback(), nil
	}

	selected, err := parseCategoryList(raw, s.maxCount)
	if err != nil {
		s.log.Warn().Err(err).Str("raw", truncate(raw, 200)).Msg("unparseable category selection, using defaults")
		return s.Fallback(), nil
	}
	if len(selected) == 0 {
		s.log.Warn().Str("raw", truncate(raw, 200)).Msg("no known categories selected, using defaults")
		return s.Fallback(), nil
	}
	return selected, nil
}

// Fallback returns a copy of the default selection.
func (s *Selector) Fallback() []asset.Category {
	return append([]asset.Category{}, s.fallback...)
}

func selectionPrompt(description asset.ProductDescription, allowed []string, maxCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an e-commerce marketing strategist. The product is: %q.\n", string(description))
	fmt.Fprintf(&b, "Choose up to %d marketing asset categories that would best promote this product.\n", maxCount)
	b.WriteString("Answer ONLY with a JSON array of category identifiers taken from this list:\n")
	for _, id := range allowed {
		c := asset.Category(id)
		fmt.Fprintf(&b, "- %s (%s)\n", id, c.Title())
	}
	return b.String()
}

// parseCategoryList extracts the JSON array from raw model text and keeps
// known, distinct categories up to maxCount.
func parseCategoryList(raw string, maxCount int) ([]asset.Category, error) {
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return nil, fmt.Errorf("empty category response")
	}

	var ids []string
	if err := json.Unmarshal([]byte(fragment), &ids); err != nil {
		return nil, fmt.Errorf("decode category array: %w", err)
	}
	return capCategories(asset.ParseCategories(ids), maxCount), nil
}

func capCategories(in []asset.Category, maxCount int) []asset.Category {
	if len(in) > maxCount {
		in = in[:maxCount]
	}
	return append([]asset.Category{}, in...)
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
