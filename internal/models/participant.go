package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one person taking part in the experiment. VideoSequence is
// fixed at creation; CurrentVideo is the cursor into it.
type Participant struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	VideoSequence []string  `gorm:"type:text;serializer:json" json:"videoSequence"`
	TotalVideos   int       `gorm:"not null;default:0" json:"totalVideos"`
	CurrentVideo  int       `gorm:"not null;default:0" json:"currentVideo"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Participant) TableName() string {
	return "participants"
}

func NewParticipant(name string, sequence []string) *Participant {
	if sequence == nil {
		sequence = []string{}
	}
	return &Participant{
		ID:            uuid.New().String(),
		Name:          name,
		VideoSequence: sequence,
		TotalVideos:   len(sequence),
		CurrentVideo:  0,
	}
}

func (p *Participant) Completed() bool {
	return p.CurrentVideo >= len(p.VideoSequence)
}

// VideoAt returns the file at the cursor, or false once the sequence is done.
func (p *Participant) VideoAt() (string, bool) {
	if p.CurrentVideo < 0 || p.CurrentVideo >= len(p.VideoSequence) {
		return "", false
	}
	return p.VideoSequence[p.CurrentVideo], true
}
