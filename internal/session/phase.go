package session

import (
	"errors"
	"time"
)

// Phase is one screen of an experiment session. The set of phases is closed.
type Phase interface {
	Name() string
	phase()
}

// SelectDirectory waits for the operator to point the session at the
// stimulus directory.
type SelectDirectory struct{}

type Intro struct{}

// Watching is playback of one stimulus. Build it with NewWatching.
type Watching struct {
	ParticipantID string
	Video         string
	Index         int
	Total         int
	StartedAt     time.Time
}

type Rating struct {
	ParticipantID string
	Video         string
	StartedAt     time.Time
	EndedAt       time.Time
}

type Healing struct {
	ParticipantID string
}

type End struct {
	ParticipantID string
}

func (SelectDirectory) phase() {}
func (Intro) phase()           {}
func (Watching) phase()        {}
func (Rating) phase()          {}
func (Healing) phase()         {}
func (End) phase()             {}

func (SelectDirectory) Name() string { return "select-directory" }
func (Intro) Name() string           { return "intro" }
func (Watching) Name() string        { return "watching" }
func (Rating) Name() string          { return "rating" }
func (Healing) Name() string         { return "healing" }
func (End) Name() string             { return "end" }

var ErrNoVideo = errors.New("watching phase needs a video")

func NewWatching(participantID, video string, index, total int, startedAt time.Time) (Watching, error) {
	if video == "" {
		return Watching{}, ErrNoVideo
	}
	return Watching{
		ParticipantID: participantID,
		Video:         video,
		Index:         index,
		Total:         total,
		StartedAt:     startedAt,
	}, nil
}
