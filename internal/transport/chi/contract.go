package chi

import (
	"context"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	healthuc "github.com/kailas-cloud/mediasearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
)

// SearchService executes searches.
type SearchService interface {
	Search(ctx context.Context, req request.Request) (searchuc.Response, error)
	Limits() request.Limits
}

// SuggestService ranks completions.
type SuggestService interface {
	Suggest(ctx context.Context, prefix string, types []suggestion.Type, limit int) ([]suggestion.Suggestion, error)
}

// Recorder accepts analytics events without blocking.
type Recorder interface {
	RecordSearch(ev analytics.Event)
	RecordClick(c analytics.Click)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
