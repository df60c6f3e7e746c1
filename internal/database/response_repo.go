package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kdimtricp/emostim/internal/models"
	"gorm.io/gorm"
)

// ErrSequenceExhausted means the participant's cursor is already at the end
// of its video sequence, so no further response can be recorded.
var ErrSequenceExhausted = errors.New("participant has no videos left to rate")

type ResponseRepository struct {
	db *DB
}

func NewResponseRepository(db *DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// RecordAndAdvance stores the response and moves the owner's cursor forward
// by one inside a single transaction. Either both writes land or neither does.
func (r *ResponseRepository) RecordAndAdvance(ctx context.Context, response *models.VideoResponse) error {
	return r.db.GORM().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(response).Error; err != nil {
			return fmt.Errorf("failed to insert response: %w", err)
		}

		result := tx.Model(&models.Participant{}).
			Where("id = ? AND current_video < total_videos", response.ParticipantID).
			Updates(map[string]any{
				"current_video": gorm.Expr("current_video + ?", 1),
				"updated_at":    time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to advance participant: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrSequenceExhausted
		}
		return nil
	})
}

func (r *ResponseRepository) ListByParticipant(ctx context.Context, participantID string) ([]models.VideoResponse, error) {
	var responses []models.VideoResponse
	result := r.db.GORM().WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("id").
		Find(&responses)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list responses: %w", result.Error)
	}
	return responses, nil
}

// ListAll returns every response with its participant loaded, oldest first.
func (r *ResponseRepository) ListAll(ctx context.Context) ([]models.VideoResponse, error) {
	var responses []models.VideoResponse
	result := r.db.GORM().WithContext(ctx).
		Preload("Participant").
		Order("id").
		Find(&responses)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list responses: %w", result.Error)
	}
	return responses, nil
}

func (r *ResponseRepository) CountByParticipant(ctx context.Context, participantID string) (int64, error) {
	var count int64
	result := r.db.GORM().WithContext(ctx).
		Model(&models.VideoResponse{}).
		Where("participant_id = ?", participantID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count responses: %w", result.Error)
	}
	return count, nil
}
