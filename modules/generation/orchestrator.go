package generation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"asset-studio-server/modules/asset"
)

// State is a step of the generation run state machine.
type State string

const (
	StateIdle                State = "idle"
	StateDescribing          State = "describing"
	StateSelectingCategories State = "selecting_categories"
	StateGeneratingAll       State = "generating_all"
	StateAggregated          State = "aggregated"
	StateAborted             State = "aborted"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateAggregated || s == StateAborted
}

var (
	ErrNoRelevantCategories = errors.New("no relevant categories")
	ErrAllGenerationsFailed = errors.New("all generations failed")
)

// ProductDescriber is satisfied by *Describer.
type ProductDescriber interface {
	Describe(ctx context.Context, image asset.ProductImage) (asset.ProductDescription, error)
}

// CategorySelector is satisfied by *Selector.
type CategorySelector interface {
	Select(ctx context.Context, description asset.ProductDescription) ([]asset.Category, error)
}

// Event is one progress notification of a run.
type Event struct {
	State       State                    `json:"state"`
	Message     string                   `json:"message,omitempty"`
	Description asset.ProductDescription `json:"description,omitempty"`
	Categories  []asset.Category         `json:"categories,omitempty"`
	Category    asset.Category           `json:"category,omitempty"`
	Succeeded   *bool                    `json:"succeeded,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Settled     int                      `json:"settled,omitempty"`
	Total       int                      `json:"total,omitempty"`
}

// Observer receives progress events. It is called from the run's goroutines
// and must be safe for concurrent use.
type Observer func(Event)

// Orchestrator runs describe -> select -> generate-all -> aggregate.
type Orchestrator struct {
	describer   ProductDescriber
	selector    CategorySelector
	images      AssetGenerator
	videos      AssetGenerator
	concurrency int
	log         zerolog.Logger
}

// NewOrchestrator wires the run steps. concurrency <= 0 dispatches every
// category at once.
func NewOrchestrator(describer ProductDescriber, selector CategorySelector, images, videos AssetGenerator, concurrency int, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		describer:   describer,
		selector:    selector,
		images:      images,
		videos:      videos,
		concurrency: concurrency,
		log:         log,
	}
}

type outcome struct {
	asset asset.GeneratedAsset
	err   error
}

// Run executes one generation run. Only run-level failures are returned as
// errors; per-category failures are recorded in the result.
func (o *Orchestrator) Run(ctx context.Context, image asset.ProductImage, observe Observer) (*asset.GenerationResult, error) {
	if observe == nil {
		observe = func(Event) {}
	}
	started := time.Now()
	runLog := o.log.With().Int("image_bytes", len(image.Data)).Str("mime", image.MIMEType).Logger()

	// Describing
	observe(Event{State: StateDescribing, Message: messageFor(StateDescribing)})
	description, err := o.describer.Describe(ctx, image)
	if err != nil {
		runLog.Error().Err(err).Msg("run aborted while describing")
		observe(Event{State: StateAborted, Error: err.Error()})
		return nil, err
	}

	// SelectingCategories
	observe(Event{State: StateSelectingCategories, Message: messageFor(StateSelectingCategories), Description: description})
	categories, err := o.selector.Select(ctx, description)
	if err != nil {
		runLog.Error().Err(err).Msg("run aborted while selecting categories")
		observe(Event{State: StateAborted, Error: err.Error()})
		return nil, err
	}
	categories = uniqueCategories(categories)
	if len(categories) == 0 {
		observe(Event{State: StateAborted, Error: ErrNoRelevantCategories.Error()})
		return nil, ErrNoRelevantCategories
	}

	// GeneratingAll
	observe(Event{State: StateGeneratingAll, Message: messageFor(StateGeneratingAll), Categories: categories, Total: len(categories)})
	outcomes := o.generateAll(ctx, description, image, categories, observe)

	// Aggregated
	result := &asset.GenerationResult{
		Description:      description,
		SuccessfulAssets: make([]asset.GeneratedAsset, 0, len(categories)),
		FailedCategories: make([]asset.Category, 0),
	}
	var causes []error
	for i, out := range outcomes {
		if out.err != nil {
			if result.FailureReasons == nil {
				result.FailureReasons = make(map[asset.Category]string)
			}
			result.FailedCategories = append(result.FailedCategories, categories[i])
			result.FailureReasons[categories[i]] = out.err.Error()
			causes = append(causes, out.err)
			continue
		}
		result.SuccessfulAssets = append(result.SuccessfulAssets, out.asset)
	}

	if len(result.SuccessfulAssets) == 0 {
		err := fmt.Errorf("%w: %w", ErrAllGenerationsFailed, errors.Join(causes...))
		runLog.Error().Err(err).Int("categories", len(categories)).Msg("run aborted, every generation failed")
		observe(Event{State: StateAborted, Error: err.Error(), Total: len(categories)})
		return nil, err
	}

	SortVideosFirst(result.SuccessfulAssets)

	runLog.Info().
		Str("description", string(description)).
		Int("succeeded", len(result.SuccessfulAssets)).
		Int("failed", len(result.FailedCategories)).
		Dur("elapsed", time.Since(started)).
		Msg("run aggregated")
	observe(Event{State: StateAggregated, Message: messageFor(StateAggregated), Settled: len(categories), Total: len(categories)})
	return result, nil
}

// generateAll dispatches one task per category and waits for all of them.
// Task failures never cancel siblings.
func (o *Orchestrator) generateAll(ctx context.Context, description asset.ProductDescription, image asset.ProductImage, categories []asset.Category, observe Observer) []outcome {
	outcomes := make([]outcome, len(categories))
	var settled atomic.Int32

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for i, category := range categories {
		g.Go(func() error {
			task := Task{Category: category, Description: description, Source: image}
			a, err := o.generatorFor(category).Generate(ctx, task)
			outcomes[i] = outcome{asset: a, err: err}

			n := settled.Add(1)
			ok := err == nil
			ev := Event{
				State:     StateGeneratingAll,
				Message:   MessageForSettled(int(n)),
				Category:  category,
				Succeeded: &ok,
				Settled:   int(n),
				Total:     len(categories),
			}
			if err != nil {
				ev.Error = err.Error()
				o.log.Warn().Err(err).Str("category", string(category)).Msg("generation failed")
			}
			observe(ev)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) generatorFor(category asset.Category) AssetGenerator {
	if category.IsVideo() {
		return o.videos
	}
	return o.images
}

func uniqueCategories(in []asset.Category) []asset.Category {
	seen := make(map[asset.Category]bool, len(in))
	out := make([]asset.Category, 0, len(in))
	for _, c := range in {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// SortVideosFirst orders video assets before image assets, stable otherwise.
func SortVideosFirst(assets []asset.GeneratedAsset) {
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].MediaKind == asset.MediaVideo && assets[j].MediaKind != asset.MediaVideo
	})
}
