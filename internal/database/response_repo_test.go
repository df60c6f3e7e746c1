package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kdimtricp/emostim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedParticipant(t *testing.T, db *DB, name string, videos ...string) *models.Participant {
	t.Helper()
	p := models.NewParticipant(name, videos)
	require.NoError(t, NewParticipantRepository(db).InsertParticipant(context.Background(), p))
	return p
}

func cursorOf(t *testing.T, db *DB, id string) int {
	t.Helper()
	p, err := NewParticipantRepository(db).GetParticipantByID(context.Background(), id)
	require.NoError(t, err)
	return p.CurrentVideo
}

func TestResponseRepository_RecordAndAdvance(t *testing.T) {
	dialects(t, func(t *testing.T, db *DB) {
		repo := NewResponseRepository(db)
		ctx := context.Background()
		p := seedParticipant(t, db, "P1", "a.mp4", "b.mp4")

		start := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
		end := start.Add(30 * time.Second)
		r := &models.VideoResponse{
			ParticipantID:     p.ID,
			VideoFileName:     "a.mp4",
			StartWatchingTime: &start,
			EndWatchingTime:   &end,
			ExcitedIntensity:  7.5,
			TenseFrequency:    2.1,
		}
		require.NoError(t, repo.RecordAndAdvance(ctx, r))
		assert.NotZero(t, r.ID)
		assert.Equal(t, 1, cursorOf(t, db, p.ID))

		responses, err := repo.ListByParticipant(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.Equal(t, "a.mp4", responses[0].VideoFileName)
		assert.InDelta(t, 7.5, responses[0].ExcitedIntensity, 1e-9)
		require.NotNil(t, responses[0].StartWatchingTime)
		assert.True(t, start.Equal(*responses[0].StartWatchingTime))
	})
}

func TestResponseRepository_StopsAtEndOfSequence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)
	ctx := context.Background()
	p := seedParticipant(t, db, "P1", "a.mp4")

	require.NoError(t, repo.RecordAndAdvance(ctx, &models.VideoResponse{ParticipantID: p.ID, VideoFileName: "a.mp4"}))

	err := repo.RecordAndAdvance(ctx, &models.VideoResponse{ParticipantID: p.ID, VideoFileName: "a.mp4"})
	assert.ErrorIs(t, err, ErrSequenceExhausted)

	count, err := repo.CountByParticipant(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "rejected submission must not leave a row behind")
	assert.Equal(t, 1, cursorOf(t, db, p.ID))
}

func TestResponseRepository_RollsBackWhenCursorUpdateFails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)
	ctx := context.Background()
	p := seedParticipant(t, db, "P1", "a.mp4", "b.mp4")

	boom := errors.New("injected update failure")
	err := db.GORM().Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		tx.AddError(boom)
	})
	require.NoError(t, err)

	err = repo.RecordAndAdvance(ctx, &models.VideoResponse{ParticipantID: p.ID, VideoFileName: "a.mp4"})
	require.ErrorIs(t, err, boom)

	require.NoError(t, db.GORM().Callback().Update().Remove("test:fail_update"))

	count, err := repo.CountByParticipant(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "response row must be rolled back")
	assert.Equal(t, 0, cursorOf(t, db, p.ID))
}

func TestResponseRepository_RollsBackWhenInsertFails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)
	ctx := context.Background()
	p := seedParticipant(t, db, "P1", "a.mp4")

	boom := errors.New("injected insert failure")
	err := db.GORM().Callback().Create().Before("gorm:create").Register("test:fail_create", func(tx *gorm.DB) {
		tx.AddError(boom)
	})
	require.NoError(t, err)
	defer db.GORM().Callback().Create().Remove("test:fail_create")

	err = repo.RecordAndAdvance(ctx, &models.VideoResponse{ParticipantID: p.ID, VideoFileName: "a.mp4"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cursorOf(t, db, p.ID))
}

func TestResponseRepository_ListAllPreloadsParticipant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResponseRepository(db)
	ctx := context.Background()
	p1 := seedParticipant(t, db, "P1", "a.mp4")
	p2 := seedParticipant(t, db, "P2", "a.mp4")

	require.NoError(t, repo.RecordAndAdvance(ctx, &models.VideoResponse{ParticipantID: p1.ID, VideoFileName: "a.mp4"}))
	require.NoError(t, repo.RecordAndAdvance(ctx, &models.VideoResponse{ParticipantID: p2.ID, VideoFileName: "a.mp4"}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Participant)
	assert.Equal(t, "P1", all[0].Participant.Name)
	assert.Equal(t, "P2", all[1].Participant.Name)
}
