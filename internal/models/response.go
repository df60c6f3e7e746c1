package models

import "time"

// Emotions rated after every stimulus, in presentation order.
var Emotions = []string{"excited", "tense", "anxious", "terrified", "desperate"}

// VideoResponse is the VAS rating a participant gave for one stimulus.
// All scores are on a 0-10 scale.
type VideoResponse struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ParticipantID     string     `gorm:"type:varchar(36);not null;index" json:"participantId"`
	VideoFileName     string     `gorm:"type:varchar(255);not null" json:"videoFileName"`
	StartWatchingTime *time.Time `json:"startWatchingTime,omitempty"`
	EndWatchingTime   *time.Time `json:"endWatchingTime,omitempty"`

	ExcitedIntensity   float64 `json:"excitedIntensity"`
	ExcitedFrequency   float64 `json:"excitedFrequency"`
	TenseIntensity     float64 `json:"tenseIntensity"`
	TenseFrequency     float64 `json:"tenseFrequency"`
	AnxiousIntensity   float64 `json:"anxiousIntensity"`
	AnxiousFrequency   float64 `json:"anxiousFrequency"`
	TerrifiedIntensity float64 `json:"terrifiedIntensity"`
	TerrifiedFrequency float64 `json:"terrifiedFrequency"`
	DesperateIntensity float64 `json:"desperateIntensity"`
	DesperateFrequency float64 `json:"desperateFrequency"`

	PhysicalDiscomfort      float64 `json:"physicalDiscomfort"`
	PsychologicalDiscomfort float64 `json:"psychologicalDiscomfort"`

	CreatedAt time.Time `json:"createdAt"`

	Participant *Participant `gorm:"foreignKey:ParticipantID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (VideoResponse) TableName() string {
	return "video_responses"
}
