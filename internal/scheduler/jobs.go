package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ybenkirane/casagreed/internal/database"
	"github.com/ybenkirane/casagreed/internal/modules/pipeline"
	"github.com/ybenkirane/casagreed/internal/scraper"
)

const pipelineRunTimeout = 10 * time.Minute

// PipelineRunner runs one full index computation
type PipelineRunner interface {
	Run(ctx context.Context) *pipeline.Result
}

// PipelineJob drives the scoring pipeline on a schedule. The same job
// instance serves both the intraday interval and the daily close run:
// the scheduler's overlap guard keeps them from stacking.
type PipelineJob struct {
	name     string
	pipeline PipelineRunner
	log      zerolog.Logger
}

// NewPipelineJob creates a named pipeline job
func NewPipelineJob(name string, runner PipelineRunner, log zerolog.Logger) *PipelineJob {
	return &PipelineJob{
		name:     name,
		pipeline: runner,
		log:      log.With().Str("job", name).Logger(),
	}
}

// Name implements Job
func (j *PipelineJob) Name() string { return j.name }

// Run implements Job
func (j *PipelineJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), pipelineRunTimeout)
	defer cancel()

	res := j.pipeline.Run(ctx)
	if !res.Success {
		return fmt.Errorf("pipeline run %s produced no score", res.RunID)
	}
	if !res.Persisted {
		return fmt.Errorf("pipeline run %s computed %.2f but was not persisted", res.RunID, res.Score)
	}

	j.log.Info().
		Str("run_id", res.RunID).
		Float64("score", res.Score).
		Str("label", res.Label).
		Msg("Scheduled pipeline run complete")
	return nil
}

// MaintenanceJob keeps the store lean: WAL checkpoint plus URL cache
// persistence. Runs daily off-hours.
type MaintenanceJob struct {
	db       *database.DB
	urlCache *scraper.URLCache
	log      zerolog.Logger
}

// NewMaintenanceJob creates the maintenance job
func NewMaintenanceJob(db *database.DB, urlCache *scraper.URLCache, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:       db,
		urlCache: urlCache,
		log:      log.With().Str("job", "maintenance").Logger(),
	}
}

// Name implements Job
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run implements Job
func (j *MaintenanceJob) Run() error {
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}
	if err := j.urlCache.Save(); err != nil {
		return fmt.Errorf("failed to persist url cache: %w", err)
	}

	j.log.Info().Int("cached_urls", j.urlCache.Len()).Msg("Maintenance complete")
	return nil
}
