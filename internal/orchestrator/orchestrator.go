// Package orchestrator runs the trader ETL pipeline.
// It coordinates: load → normalize → unpivot → replace → refresh
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/etl"
	"trader-explorer/internal/observability"
	"trader-explorer/internal/storage"
)

// Pipeline stages.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageUnpivot   = "unpivot"
	StageReplace   = "replace"
	StageRefresh   = "refresh"
)

// StageError identifies the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Orchestrator coordinates the ETL pipeline execution.
type Orchestrator struct {
	loader    storage.TraderLoader
	refresher storage.ViewRefresher
	metrics   *observability.Metrics
	log       logrus.FieldLogger
	now       func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	Loader    storage.TraderLoader
	Refresher storage.ViewRefresher

	// Optional; default to observability.DefaultMetrics and the standard logger.
	Metrics *observability.Metrics
	Logger  logrus.FieldLogger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		loader:    opts.Loader,
		refresher: opts.Refresher,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       time.Now,
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics
	}
	if o.log == nil {
		o.log = logrus.WithField("component", "orchestrator")
	}
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RowsRead        int
	TopicsUnpivoted int
	TradersLoaded   int64
	TopicsLoaded    int64

	// Loaded is true once the replace transaction committed.
	Loaded    bool
	Refreshed bool
	Duration  time.Duration
}

// Run executes the full pipeline over the CSV files in dir.
// A failure before replace leaves the store untouched. A refresh failure is
// returned as a StageError together with a result reporting the committed load.
func (o *Orchestrator) Run(ctx context.Context, dir string) (*RunResult, error) {
	start := o.now()
	result := &RunResult{}
	defer func() { result.Duration = o.now().Sub(start) }()

	var raw *etl.Table
	err := o.stage(StageLoad, func() (int, error) {
		var err error
		raw, err = etl.LoadDir(ctx, dir)
		if err != nil {
			return 0, err
		}
		return raw.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	result.RowsRead = raw.Len()

	var typed *etl.Table
	_ = o.stage(StageNormalize, func() (int, error) {
		typed = etl.Normalize(raw)
		return typed.Len(), nil
	})

	var topics []domain.TopicShare
	err = o.stage(StageUnpivot, func() (int, error) {
		var err error
		topics, err = etl.Unpivot(typed)
		return len(topics), err
	})
	if err != nil {
		return nil, err
	}
	result.TopicsUnpivoted = len(topics)

	err = o.stage(StageReplace, func() (int, error) {
		loaded, err := o.loader.Replace(ctx, typed, topics)
		if err != nil {
			return 0, err
		}
		result.TradersLoaded = loaded.TradersInserted
		result.TopicsLoaded = loaded.TopicsInserted
		return int(loaded.TradersInserted + loaded.TopicsInserted), nil
	})
	if err != nil {
		return nil, err
	}
	result.Loaded = true
	o.metrics.RecordLoadCommitted(o.now())

	err = o.stage(StageRefresh, func() (int, error) {
		return 0, o.refresher.Refresh(ctx)
	})
	if err != nil {
		return result, err
	}
	result.Refreshed = true

	o.log.WithFields(logrus.Fields{
		"traders": result.TradersLoaded,
		"topics":  result.TopicsLoaded,
	}).Info("pipeline completed")

	return result, nil
}

// stage runs fn, records its metrics and wraps a failure in a StageError.
func (o *Orchestrator) stage(name string, fn func() (int, error)) error {
	log := o.log.WithField("stage", name)
	log.Debug("stage started")

	start := o.now()
	rows, err := fn()
	o.metrics.RecordStage(name, o.now().Sub(start), rows, err)

	if err != nil {
		log.WithError(err).Error("stage failed")
		return &StageError{Stage: name, Err: err}
	}
	log.WithField("rows", rows).Info("stage completed")
	return nil
}
