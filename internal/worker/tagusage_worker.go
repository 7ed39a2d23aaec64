package worker

import (
	"context"
	"time"

	"github.com/openqb/qbank-backend/internal/service"
	"github.com/rs/zerolog"
)

// TagUsageWorker periodically recomputes tag usage statistics so the
// analytics endpoint serves a warm snapshot instead of scanning the bank on
// every request.
type TagUsageWorker struct {
	questionService *service.QuestionService
	interval        time.Duration
	log             zerolog.Logger
}

// NewTagUsageWorker creates a new TagUsageWorker.
func NewTagUsageWorker(questionService *service.QuestionService, interval time.Duration, log zerolog.Logger) *TagUsageWorker {
	return &TagUsageWorker{
		questionService: questionService,
		interval:        interval,
		log:             log.With().Str("component", "tag_usage_worker").Logger(),
	}
}

// Start begins the refresh loop. Call in a goroutine; returns when ctx is
// cancelled.
func (w *TagUsageWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	// Warm the cache immediately so the first request after boot hits it.
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *TagUsageWorker) refresh(ctx context.Context) {
	usage, err := w.questionService.RefreshTagUsage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Tag usage refresh failed")
		}
		return
	}
	w.log.Debug().Int("tags", len(usage)).Msg("Tag usage refreshed")
}
