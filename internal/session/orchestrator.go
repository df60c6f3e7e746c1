package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kdimtricp/emostim/internal/client"
	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/kdimtricp/emostim/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrSkipped is returned by a Player whose viewer ended playback early.
var ErrSkipped = errors.New("playback skipped")

// API is the part of the HTTP client a session needs.
type API interface {
	CreateOrResume(ctx context.Context, name string) (*experiment.Enrollment, error)
	NextVideo(ctx context.Context, participantID string) (*experiment.NextVideo, error)
	SubmitResponse(ctx context.Context, in experiment.ResponseInput) (*models.VideoResponse, error)
	ListVideos(ctx context.Context) (*client.VideoList, error)
}

// Player plays a video to completion.
type Player interface {
	Play(ctx context.Context, video string) error
}

// Rater collects the VAS scores for a video. Identity and timing fields of
// the returned input are filled in by the orchestrator.
type Rater interface {
	Rate(ctx context.Context, video string) (experiment.ResponseInput, error)
}

type Config struct {
	Machine Machine
	// MaxAttempts bounds retries of a single API call. Default 3.
	MaxAttempts int
	// Backoff is the base delay between retries when the server gives no
	// Retry-After. Default 1s.
	Backoff time.Duration
	// MaxFaults is how many full restarts a session may take. Default 3.
	MaxFaults int
	// OnPhase, if set, is called on entry to every phase.
	OnPhase func(Phase)
	Logger  *logrus.Entry
}

type Orchestrator struct {
	api     API
	player  Player
	rater   Rater
	machine Machine

	maxAttempts int
	backoff     time.Duration
	maxFaults   int
	onPhase     func(Phase)
	log         *logrus.Entry
	now         func() time.Time

	healingVideo string
}

func NewOrchestrator(api API, player Player, rater Rater, config Config) *Orchestrator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Backoff <= 0 {
		config.Backoff = time.Second
	}
	if config.MaxFaults <= 0 {
		config.MaxFaults = 3
	}
	log := config.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Orchestrator{
		api:         api,
		player:      player,
		rater:       rater,
		machine:     config.Machine,
		maxAttempts: config.MaxAttempts,
		backoff:     config.Backoff,
		maxFaults:   config.MaxFaults,
		onPhase:     config.OnPhase,
		log:         log,
		now:         time.Now,
	}
}

// Run drives one participant's session from the initial phase to End.
// Failures inside a phase become a Fault, which restarts at Intro; the
// server-side cursor makes the restart resume where the participant was.
func (o *Orchestrator) Run(ctx context.Context, name string) (End, error) {
	phase := o.machine.Initial()
	faults := 0

	for {
		if o.onPhase != nil {
			o.onPhase(phase)
		}

		var ev Event
		var err error

		switch p := phase.(type) {
		case SelectDirectory:
			ev = DirectorySelected{}
		case Intro:
			ev, err = o.enroll(ctx, name)
		case Watching:
			ev, err = o.watch(ctx, p)
		case Rating:
			ev, err = o.rate(ctx, p)
		case Healing:
			ev, err = o.heal(ctx)
		case End:
			return p, nil
		default:
			return End{}, fmt.Errorf("unknown phase %T", phase)
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return End{}, ctxErr
			}
			faults++
			o.log.WithFields(logrus.Fields{
				"phase":  phase.Name(),
				"faults": faults,
			}).WithError(err).Warn("session fault, restarting")
			if faults > o.maxFaults {
				return End{}, fmt.Errorf("session aborted after %d restarts: %w", o.maxFaults, err)
			}
			ev = Fault{Err: err}
		}

		next, err := o.machine.Transition(phase, ev)
		if err != nil {
			return End{}, err
		}
		phase = next
	}
}

func (o *Orchestrator) enroll(ctx context.Context, name string) (Event, error) {
	var enrollment *experiment.Enrollment
	err := o.retry(ctx, "enroll", func() error {
		var err error
		enrollment, err = o.api.CreateOrResume(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.log.WithFields(logrus.Fields{
		"participant_id": enrollment.Participant.ID,
		"resuming":       enrollment.Resuming,
		"completed":      enrollment.Completed,
	}).Info("participant enrolled")
	return Enrolled{Enrollment: *enrollment, At: o.now()}, nil
}

func (o *Orchestrator) watch(ctx context.Context, p Watching) (Event, error) {
	err := safely(func() error { return o.player.Play(ctx, p.Video) })
	switch {
	case err == nil:
		return PlaybackEnded{At: o.now()}, nil
	case errors.Is(err, ErrSkipped) && o.machine.AllowSkip:
		return Skipped{At: o.now()}, nil
	default:
		return nil, fmt.Errorf("playing %s: %w", p.Video, err)
	}
}

func (o *Orchestrator) rate(ctx context.Context, p Rating) (Event, error) {
	var in experiment.ResponseInput
	err := safely(func() error {
		var err error
		in, err = o.rater.Rate(ctx, p.Video)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rating %s: %w", p.Video, err)
	}

	in.ParticipantID = p.ParticipantID
	in.VideoFileName = p.Video
	start, end := p.StartedAt, p.EndedAt
	if !start.IsZero() {
		in.StartWatchingTime = &start
	}
	if !end.IsZero() {
		in.EndWatchingTime = &end
	}

	// TODO: retrying a submission whose ack was lost stores it twice; needs a
	// client-generated idempotency key honoured by the server.
	if err := o.retry(ctx, "submit response", func() error {
		_, err := o.api.SubmitResponse(ctx, in)
		return err
	}); err != nil {
		return nil, err
	}

	var next *experiment.NextVideo
	if err := o.retry(ctx, "next video", func() error {
		var err error
		next, err = o.api.NextVideo(ctx, p.ParticipantID)
		return err
	}); err != nil {
		return nil, err
	}
	return RatingSubmitted{Next: *next, At: o.now()}, nil
}

func (o *Orchestrator) heal(ctx context.Context) (Event, error) {
	if o.healingVideo == "" {
		var list *client.VideoList
		if err := o.retry(ctx, "list videos", func() error {
			var err error
			list, err = o.api.ListVideos(ctx)
			return err
		}); err != nil {
			return nil, err
		}
		o.healingVideo = list.HealingVideo
	}
	if o.healingVideo == "" {
		o.log.Warn("no healing video configured on the server, skipping healing")
		return HealingEnded{}, nil
	}

	err := safely(func() error { return o.player.Play(ctx, o.healingVideo) })
	if err != nil && !(errors.Is(err, ErrSkipped) && o.machine.AllowSkip) {
		return nil, fmt.Errorf("playing healing video: %w", err)
	}
	return HealingEnded{}, nil
}

func (o *Orchestrator) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err = fn(); err == nil || !client.IsRetryable(err) {
			return err
		}
		if attempt == o.maxAttempts {
			break
		}

		wait := client.RetryAfter(err)
		if wait == 0 {
			wait = o.backoff * time.Duration(attempt)
		}
		o.log.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// safely runs fn, turning a panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
