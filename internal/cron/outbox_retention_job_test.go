package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/db/dbtest"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/outbox"
)

type fakePublishedDeleter struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakePublishedDeleter) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 3, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestOutboxRetentionUsesDefaultWindow(t *testing.T) {
	now := time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC)
	repo := &fakePublishedDeleter{}
	job, err := NewOutboxRetentionJob(RetentionParams{Logger: logger.Nop(), DB: passthroughTx{}}, repo)
	require.NoError(t, err)
	job.(*retentionJob).now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, OutboxRetentionJobName, job.Name())
	assert.Equal(t, 1, repo.calls)
	assert.True(t, repo.cutoff.Equal(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)), "cutoff %s", repo.cutoff)
}

func TestOutboxRetentionPropagatesError(t *testing.T) {
	repo := &fakePublishedDeleter{err: errors.New("boom")}
	job, err := NewOutboxRetentionJob(RetentionParams{Logger: logger.Nop(), DB: passthroughTx{}, RetentionDays: 7}, repo)
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), OutboxRetentionJobName)
}

func TestRetentionJobsValidateParams(t *testing.T) {
	_, err := NewOutboxRetentionJob(RetentionParams{Logger: logger.Nop(), DB: passthroughTx{}}, nil)
	assert.Error(t, err)
	_, err = NewOutboxDLQRetentionJob(RetentionParams{DB: passthroughTx{}}, &outbox.DLQRepository{})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(RetentionParams{Logger: logger.Nop()}, &fakePublishedDeleter{})
	assert.Error(t, err)
}

func TestDLQRetentionAgainstDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := outbox.NewDLQRepository(conn)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, age := range []int{120, 10} {
		require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			FailedAt:      now.AddDate(0, 0, -age),
		}))
	}

	job, err := NewOutboxDLQRetentionJob(RetentionParams{Logger: logger.Nop(), DB: db.Wrap(conn)}, dlq)
	require.NoError(t, err)
	job.(*retentionJob).now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxDLQ{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}
