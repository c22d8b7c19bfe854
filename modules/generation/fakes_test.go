package generation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"asset-studio-server/modules/asset"
)

type fakeVision struct {
	text        string
	err         error
	calls       int
	instruction string
}

func (f *fakeVision) DescribeImage(_ context.Context, _ asset.ProductImage, instruction string) (string, error) {
	f.calls++
	f.instruction = instruction
	return f.text, f.err
}

type fakeText struct {
	raw      string
	err      error
	allowed  []string
	maxCount int
}

func (f *fakeText) SelectCategories(_ context.Context, _ string, allowed []string, maxCount int) (string, error) {
	f.allowed = allowed
	f.maxCount = maxCount
	return f.raw, f.err
}

type fakeImageModel struct {
	conditioned bool
	mu          sync.Mutex
	requests    []ImageRequest
	payload     *MediaPayload
	err         error
}

func (f *fakeImageModel) SupportsSourceImage() bool { return f.conditioned }

func (f *fakeImageModel) GenerateImage(_ context.Context, req ImageRequest) (*MediaPayload, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.payload, f.err
}

// fakeVideoModel reports done after pendingPolls incomplete poll responses.
type fakeVideoModel struct {
	pendingPolls int
	pollErrs     []error
	final        VideoOperation
	startErr     error
	fetchPayload *MediaPayload
	fetchErr     error

	polls        int
	fetches      int
	lastLocation string
	startReq     VideoRequest
}

func (f *fakeVideoModel) StartVideo(_ context.Context, req VideoRequest) (*VideoOperation, error) {
	f.startReq = req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &VideoOperation{Name: "operations/video-1"}, nil
}

func (f *fakeVideoModel) PollVideo(_ context.Context, op *VideoOperation) (*VideoOperation, error) {
	f.polls++
	if len(f.pollErrs) > 0 {
		err := f.pollErrs[0]
		f.pollErrs = f.pollErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.polls <= f.pendingPolls {
		return &VideoOperation{Name: op.Name}, nil
	}
	final := f.final
	final.Name = op.Name
	final.Done = true
	return &final, nil
}

func (f *fakeVideoModel) FetchVideo(_ context.Context, location string) (*MediaPayload, error) {
	f.fetches++
	f.lastLocation = location
	return f.fetchPayload, f.fetchErr
}

type fakeDescriber struct {
	desc asset.ProductDescription
	err  error
}

func (f fakeDescriber) Describe(context.Context, asset.ProductImage) (asset.ProductDescription, error) {
	return f.desc, f.err
}

type fakeSelector struct {
	categories []asset.Category
}

func (f fakeSelector) Select(context.Context, asset.ProductDescription) ([]asset.Category, error) {
	return f.categories, nil
}

// scriptedGenerator fails the categories in failing and counts invocations.
type scriptedGenerator struct {
	failing map[asset.Category]bool
	calls   atomic.Int32
}

func (g *scriptedGenerator) Generate(_ context.Context, task Task) (asset.GeneratedAsset, error) {
	g.calls.Add(1)
	if g.failing[task.Category] {
		return asset.GeneratedAsset{}, errors.New("no image payload for " + string(task.Category))
	}
	return asset.NewGeneratedAsset(task.Category, "prompt for "+string(task.Description), []byte("x"), ""), nil
}
