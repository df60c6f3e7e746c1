package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kdimtricp/emostim/internal/catalog"
	"github.com/kdimtricp/emostim/internal/database"
	"github.com/kdimtricp/emostim/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Enrollment is the outcome of a name submission.
type Enrollment struct {
	Participant  *models.Participant `json:"participant"`
	CurrentVideo *string             `json:"currentVideo"`
	Resuming     bool                `json:"resuming"`
	Completed    bool                `json:"completed"`
}

// NextVideo describes the video at a participant's cursor. When Completed is
// set the other fields carry no video.
type NextVideo struct {
	VideoFileName string `json:"videoFileName,omitempty"`
	CurrentIndex  int    `json:"currentIndex"`
	TotalVideos   int    `json:"totalVideos"`
	Completed     bool   `json:"completed,omitempty"`
}

// ResponseInput is a rating submission as received from the client.
type ResponseInput struct {
	ParticipantID     string     `json:"participantId" validate:"required"`
	VideoFileName     string     `json:"videoFileName" validate:"required"`
	StartWatchingTime *time.Time `json:"startWatchingTime,omitempty"`
	EndWatchingTime   *time.Time `json:"endWatchingTime,omitempty"`

	ExcitedIntensity   float64 `json:"excitedIntensity" validate:"gte=0,lte=10"`
	ExcitedFrequency   float64 `json:"excitedFrequency" validate:"gte=0,lte=10"`
	TenseIntensity     float64 `json:"tenseIntensity" validate:"gte=0,lte=10"`
	TenseFrequency     float64 `json:"tenseFrequency" validate:"gte=0,lte=10"`
	AnxiousIntensity   float64 `json:"anxiousIntensity" validate:"gte=0,lte=10"`
	AnxiousFrequency   float64 `json:"anxiousFrequency" validate:"gte=0,lte=10"`
	TerrifiedIntensity float64 `json:"terrifiedIntensity" validate:"gte=0,lte=10"`
	TerrifiedFrequency float64 `json:"terrifiedFrequency" validate:"gte=0,lte=10"`
	DesperateIntensity float64 `json:"desperateIntensity" validate:"gte=0,lte=10"`
	DesperateFrequency float64 `json:"desperateFrequency" validate:"gte=0,lte=10"`

	PhysicalDiscomfort      float64 `json:"physicalDiscomfort" validate:"gte=0,lte=10"`
	PsychologicalDiscomfort float64 `json:"psychologicalDiscomfort" validate:"gte=0,lte=10"`
}

type Config struct {
	// Rand drives the video order shuffle. Nil uses the global source.
	Rand *rand.Rand
	// ResponsesStored is incremented after each persisted rating. Optional.
	ResponsesStored prometheus.Counter
	Logger          *logrus.Entry
}

type Service struct {
	participants *database.ParticipantRepository
	responses    *database.ResponseRepository
	catalog      *catalog.Catalog
	validate     *validator.Validate
	log          *logrus.Entry
	stored       prometheus.Counter

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(
	participants *database.ParticipantRepository,
	responses *database.ResponseRepository,
	videos *catalog.Catalog,
	config Config,
) *Service {
	log := config.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Service{
		participants: participants,
		responses:    responses,
		catalog:      videos,
		validate:     newValidator(),
		log:          log,
		stored:       config.ResponsesStored,
		rng:          config.Rand,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateOrResume looks the participant up by name and returns their position,
// or enrolls them with a fresh random ordering of the stimulus catalog.
func (s *Service) CreateOrResume(ctx context.Context, name string) (*Enrollment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name is required")
	}

	existing, err := s.participants.GetParticipantByName(ctx, name)
	if err == nil {
		return enrollmentOf(existing, true), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, NewInternalError("failed to look up participant", err)
	}

	sequence := s.shuffle(s.catalog.ListStimulusVideos())
	participant := models.NewParticipant(name, sequence)

	if err := s.participants.InsertParticipant(ctx, participant); err != nil {
		if !errors.Is(err, database.ErrDuplicateName) {
			return nil, NewInternalError("failed to create participant", err)
		}
		// Lost a race with a concurrent submission of the same name.
		winner, err := s.participants.GetParticipantByName(ctx, name)
		if err != nil {
			return nil, NewInternalError("failed to look up participant", err)
		}
		return enrollmentOf(winner, true), nil
	}

	s.log.WithFields(logrus.Fields{
		"participant_id": participant.ID,
		"total_videos":   participant.TotalVideos,
	}).Info("participant enrolled")

	return enrollmentOf(participant, false), nil
}

func (s *Service) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	participant, err := s.participants.GetParticipantByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, NewNotFoundError("participant not found")
		}
		return nil, NewInternalError("failed to get participant", err)
	}
	return participant, nil
}

func (s *Service) GetNextVideo(ctx context.Context, participantID string) (*NextVideo, error) {
	participant, err := s.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	video, ok := participant.VideoAt()
	if !ok {
		return &NextVideo{Completed: true, CurrentIndex: participant.CurrentVideo, TotalVideos: participant.TotalVideos}, nil
	}
	return &NextVideo{
		VideoFileName: video,
		CurrentIndex:  participant.CurrentVideo,
		TotalVideos:   participant.TotalVideos,
	}, nil
}

// RecordResponse stores a rating and advances the participant's cursor in
// the same transaction.
func (s *Service) RecordResponse(ctx context.Context, in ResponseInput) (*models.VideoResponse, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if _, err := s.GetParticipant(ctx, in.ParticipantID); err != nil {
		return nil, err
	}

	response := in.toModel()
	if err := s.responses.RecordAndAdvance(ctx, response); err != nil {
		if errors.Is(err, database.ErrSequenceExhausted) {
			return nil, NewValidationError("all videos already rated")
		}
		return nil, NewInternalError("failed to save response", err)
	}

	if s.stored != nil {
		s.stored.Inc()
	}
	s.log.WithFields(logrus.Fields{
		"participant_id": response.ParticipantID,
		"video":          response.VideoFileName,
		"response_id":    response.ID,
	}).Info("response recorded")

	return response, nil
}

func (s *Service) ListResponses(ctx context.Context, participantID string) ([]models.VideoResponse, error) {
	if _, err := s.GetParticipant(ctx, participantID); err != nil {
		return nil, err
	}
	responses, err := s.responses.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, NewInternalError("failed to list responses", err)
	}
	return responses, nil
}

func (s *Service) validateInput(in ResponseInput) error {
	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return NewValidationError(describeFieldError(fieldErrs[0]))
		}
		return NewValidationError(err.Error())
	}
	if in.StartWatchingTime != nil && in.EndWatchingTime != nil &&
		in.EndWatchingTime.Before(*in.StartWatchingTime) {
		return NewValidationError("endWatchingTime must not be before startWatchingTime")
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 10", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// shuffle returns a uniformly random permutation of videos (Fisher-Yates).
func (s *Service) shuffle(videos []string) []string {
	out := make([]string, len(videos))
	copy(out, videos)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }

	if s.rng == nil {
		rand.Shuffle(len(out), swap)
		return out
	}
	s.rngMu.Lock()
	s.rng.Shuffle(len(out), swap)
	s.rngMu.Unlock()
	return out
}

func enrollmentOf(p *models.Participant, resuming bool) *Enrollment {
	e := &Enrollment{Participant: p, Resuming: resuming}
	if video, ok := p.VideoAt(); ok {
		e.CurrentVideo = &video
	} else {
		e.Completed = true
	}
	return e
}

func (in ResponseInput) toModel() *models.VideoResponse {
	return &models.VideoResponse{
		ParticipantID:           in.ParticipantID,
		VideoFileName:           in.VideoFileName,
		StartWatchingTime:       in.StartWatchingTime,
		EndWatchingTime:         in.EndWatchingTime,
		ExcitedIntensity:        in.ExcitedIntensity,
		ExcitedFrequency:        in.ExcitedFrequency,
		TenseIntensity:          in.TenseIntensity,
		TenseFrequency:          in.TenseFrequency,
		AnxiousIntensity:        in.AnxiousIntensity,
		AnxiousFrequency:        in.AnxiousFrequency,
		TerrifiedIntensity:      in.TerrifiedIntensity,
		TerrifiedFrequency:      in.TerrifiedFrequency,
		DesperateIntensity:      in.DesperateIntensity,
		DesperateFrequency:      in.DesperateFrequency,
		PhysicalDiscomfort:      in.PhysicalDiscomfort,
		PsychologicalDiscomfort: in.PsychologicalDiscomfort,
	}
}
