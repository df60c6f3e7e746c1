package session

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid transition")

// Machine holds the switches that change which transitions are legal.
type Machine struct {
	// RequireDirectory starts sessions in SelectDirectory instead of Intro.
	RequireDirectory bool
	// AllowSkip accepts Skipped while Watching. Off in production.
	AllowSkip bool
}

func (m Machine) Initial() Phase {
	if m.RequireDirectory {
		return SelectDirectory{}
	}
	return Intro{}
}

// Transition returns the phase that follows p on e.
func (m Machine) Transition(p Phase, e Event) (Phase, error) {
	if _, ok := e.(Fault); ok {
		return Intro{}, nil
	}

	switch cur := p.(type) {
	case SelectDirectory:
		if _, ok := e.(DirectorySelected); ok {
			return Intro{}, nil
		}

	case Intro:
		if ev, ok := e.(Enrolled); ok {
			next, err := fromEnrollment(ev)
			if err != nil {
				return p, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
			}
			return next, nil
		}

	case Watching:
		switch ev := e.(type) {
		case PlaybackEnded:
			return Rating{ParticipantID: cur.ParticipantID, Video: cur.Video, StartedAt: cur.StartedAt, EndedAt: ev.At}, nil
		case Skipped:
			if m.AllowSkip {
				return Rating{ParticipantID: cur.ParticipantID, Video: cur.Video, StartedAt: cur.StartedAt, EndedAt: ev.At}, nil
			}
		}

	case Rating:
		if ev, ok := e.(RatingSubmitted); ok {
			if ev.Next.Completed {
				return Healing{ParticipantID: cur.ParticipantID}, nil
			}
			w, err := NewWatching(cur.ParticipantID, ev.Next.VideoFileName, ev.Next.CurrentIndex, ev.Next.TotalVideos, ev.At)
			if err != nil {
				return p, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
			}
			return w, nil
		}

	case Healing:
		if _, ok := e.(HealingEnded); ok {
			return End{ParticipantID: cur.ParticipantID}, nil
		}

	case End:
		if _, ok := e.(Restart); ok {
			return m.Initial(), nil
		}
	}

	return p, fmt.Errorf("%w: %T in %s", ErrInvalidTransition, e, phaseName(p))
}

func fromEnrollment(ev Enrolled) (Phase, error) {
	p := ev.Enrollment.Participant
	if p == nil {
		return nil, errors.New("enrollment without participant")
	}
	if ev.Enrollment.Completed || ev.Enrollment.CurrentVideo == nil {
		return Healing{ParticipantID: p.ID}, nil
	}
	w, err := NewWatching(p.ID, *ev.Enrollment.CurrentVideo, p.CurrentVideo, p.TotalVideos, ev.At)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func phaseName(p Phase) string {
	if p == nil {
		return "<nil>"
	}
	return p.Name()
}
