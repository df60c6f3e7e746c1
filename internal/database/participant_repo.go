package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/kdimtricp/emostim/internal/models"
	"gorm.io/gorm"
)

var ErrDuplicateName = errors.New("participant name already exists")

type ParticipantRepository struct {
	db *DB
}

func NewParticipantRepository(db *DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) InsertParticipant(ctx context.Context, participant *models.Participant) error {
	result := r.db.GORM().WithContext(ctx).Create(participant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert participant: %w", result.Error)
	}
	return nil
}

func (r *ParticipantRepository) GetParticipantByID(ctx context.Context, id string) (*models.Participant, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ParticipantRepository) GetParticipantByName(ctx context.Context, name string) (*models.Participant, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *ParticipantRepository) first(ctx context.Context, query string, arg any) (*models.Participant, error) {
	var participant models.Participant
	result := r.db.GORM().WithContext(ctx).Where(query, arg).First(&participant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", result.Error)
	}
	return &participant, nil
}
