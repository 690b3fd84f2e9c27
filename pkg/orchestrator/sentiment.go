package orchestrator

import (
	"context"
	"strings"

	"github.com/pario-ai/sous/pkg/fallback"
	"github.com/pario-ai/sous/pkg/models"
	"github.com/pario-ai/sous/pkg/parse"
)

// ClassifySentiment labels a review. It never fails; any problem yields
// Neutral. Results are not cached.
func (s *Service) ClassifySentiment(ctx context.Context, text string) models.Sentiment {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback.Sentiment()
	}
	sentiment, _ := run(ctx, s, job[models.Sentiment]{
		feature:  models.FeatureSentiment,
		prompt:   sentimentPrompt(text),
		parse:    parse.Sentiment,
		fallback: fallback.Sentiment,
	})
	return sentiment
}

// ClassifySentimentAsync classifies text in the background and passes the
// result to done. The classification outlives ctx cancellation but keeps its
// values. After Close, done is called immediately with Neutral.
func (s *Service) ClassifySentimentAsync(ctx context.Context, text string, done func(models.Sentiment)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.deliver(done, fallback.Sentiment())
		return
	}
	s.async.Add(1)
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer s.async.Done()
		s.deliver(done, s.ClassifySentiment(ctx, text))
	}()
}

func (s *Service) deliver(done func(models.Sentiment), v models.Sentiment) {
	if done == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sentiment callback panicked", "panic", r)
		}
	}()
	done(v)
}
