package reconcile

import (
	"context"
	"errors"

	"stewardship/internal/giving/importer"
	id "stewardship/pkg/domain"
	dErrors "stewardship/pkg/domain-errors"
	"stewardship/pkg/platform/sentinel"
)

// Reporter builds and keeps import summaries. It satisfies
// importer.ResultSink.
type Reporter struct {
	store SummaryStore
}

func NewReporter(store SummaryStore) *Reporter {
	return &Reporter{store: store}
}

func (r *Reporter) Record(ctx context.Context, result *importer.Result) error {
	return r.store.Save(ctx, Summarize(result))
}

// GetSummary returns the stored summary for runID.
func (r *Reporter) GetSummary(ctx context.Context, runID id.ImportRunID) (*Summary, error) {
	summary, err := r.store.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "import summary not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load import summary")
	}
	return summary, nil
}
