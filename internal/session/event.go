package session

import (
	"time"

	"github.com/kdimtricp/emostim/internal/experiment"
)

// Event is something that happened while in a phase.
type Event interface {
	event()
}

type DirectorySelected struct{}

type Enrolled struct {
	Enrollment experiment.Enrollment
	At         time.Time
}

type PlaybackEnded struct {
	At time.Time
}

// Skipped ends playback early. Only accepted by machines that allow it.
type Skipped struct {
	At time.Time
}

type RatingSubmitted struct {
	Next experiment.NextVideo
	At   time.Time
}

type HealingEnded struct{}

type Restart struct{}

// Fault abandons the session; the machine returns to Intro.
type Fault struct {
	Err error
}

func (DirectorySelected) event() {}
func (Enrolled) event()          {}
func (PlaybackEnded) event()     {}
func (Skipped) event()           {}
func (RatingSubmitted) event()   {}
func (HealingEnded) event()      {}
func (Restart) event()           {}
func (Fault) event()             {}
