package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/metrics"
)

const (
	OutboxRetentionJobName    = "outbox-retention"
	OutboxDLQRetentionJobName = "outbox-dlq-retention"

	defaultOutboxRetentionDays = 30
	defaultDLQRetentionDays    = 90
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedDeleter interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqDeleter interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type RetentionParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Metrics       *metrics.MaintenanceMetrics
	RetentionDays int
}

// NewOutboxRetentionJob drops delivered outbox rows older than the retention window.
func NewOutboxRetentionJob(params RetentionParams, repo publishedDeleter) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	job, err := newRetentionJob(OutboxRetentionJobName, defaultOutboxRetentionDays, params, repo.DeletePublishedBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// NewOutboxDLQRetentionJob drops dead letters older than the retention window.
func NewOutboxDLQRetentionJob(params RetentionParams, repo dlqDeleter) (Job, error) {
	if repo == nil {
		return nil, errors.New("dlq repository required")
	}
	job, err := newRetentionJob(OutboxDLQRetentionJobName, defaultDLQRetentionDays, params, repo.DeleteFailedBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

type deleteFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type retentionJob struct {
	name    string
	days    int
	logg    *logger.Logger
	db      txRunner
	metrics *metrics.MaintenanceMetrics
	del     deleteFunc
	now     func() time.Time
}

func newRetentionJob(name string, defaultDays int, params RetentionParams, del deleteFunc) (*retentionJob, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultDays
	}
	return &retentionJob{
		name:    name,
		days:    days,
		logg:    params.Logger,
		db:      params.DB,
		metrics: params.Metrics,
		del:     del,
		now:     time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.del(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.metrics.RowsDeleted(j.name, deleted)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "retention cleanup complete")
	return nil
}
