package sentiment

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// ArticleInput is the text pair an analyzer scores
type ArticleInput struct {
	Title   string
	Summary string
}

// Service scores article batches. When the primary analyzer fails on any
// article, the whole batch is rescored with the lexicon so one day's scores
// always come from a single method.
type Service struct {
	primary     Analyzer
	lexicon     *Lexicon
	concurrency int
	log         zerolog.Logger
}

// NewService creates a batch scorer around the given primary analyzer
func NewService(primary Analyzer, log zerolog.Logger) *Service {
	return &Service{
		primary:     primary,
		lexicon:     NewLexicon(),
		concurrency: 4,
		log:         log.With().Str("component", "sentiment").Logger(),
	}
}

// Method reports which analyzer the last batch would use first
func (s *Service) Method() string { return s.primary.Name() }

// ScoreBatch scores all articles, falling back to the lexicon for the
// entire batch on any primary failure
func (s *Service) ScoreBatch(ctx context.Context, articles []ArticleInput) []Result {
	if len(articles) == 0 {
		return nil
	}

	if _, isLexicon := s.primary.(*Lexicon); isLexicon {
		return s.scoreWithLexicon(ctx, articles)
	}

	results := make([]Result, len(articles))
	errs := make([]error, len(articles))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, article := range articles {
		wg.Add(1)
		go func(i int, article ArticleInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = s.primary.ScoreArticle(ctx, article.Title, article.Summary)
		}(i, article)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			s.log.Warn().Err(err).Int("article", i).Msg("Primary analyzer failed, rescoring batch with lexicon")
			return s.scoreWithLexicon(ctx, articles)
		}
	}

	return results
}

func (s *Service) scoreWithLexicon(ctx context.Context, articles []ArticleInput) []Result {
	results := make([]Result, len(articles))
	for i, article := range articles {
		results[i], _ = s.lexicon.ScoreArticle(ctx, article.Title, article.Summary)
	}
	return results
}
