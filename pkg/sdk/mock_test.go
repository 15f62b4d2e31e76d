package servicesearch

import (
	"context"

	"github.com/kailas-cloud/servicesearch/internal/domain/search/request"
	"github.com/kailas-cloud/servicesearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/servicesearch/internal/usecase/health"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) ([]result.Result, error)
	got      *request.Request
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	m.got = req
	return m.searchFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- public Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

func newTestClient(search searchUseCase, health healthUseCase) *Client {
	return &Client{
		searchSvc: search,
		healthSvc: health,
		policy:    request.DefaultPolicy(),
	}
}
