package experiment

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/kdimtricp/emostim/internal/models"
)

var exportHeader = []string{
	"response_id", "participant_id", "participant_name", "video_file_name",
	"start_watching_time", "end_watching_time",
	"excited_intensity", "excited_frequency",
	"tense_intensity", "tense_frequency",
	"anxious_intensity", "anxious_frequency",
	"terrified_intensity", "terrified_frequency",
	"desperate_intensity", "desperate_frequency",
	"physical_discomfort", "psychological_discomfort",
	"created_at",
}

// ExportCSV writes every stored response as long-format CSV, one row per
// response, oldest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	responses, err := s.responses.ListAll(ctx)
	if err != nil {
		return NewInternalError("failed to load responses", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range responses {
		if err := cw.Write(exportRow(&responses[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(r *models.VideoResponse) []string {
	name := ""
	if r.Participant != nil {
		name = r.Participant.Name
	}
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		r.ParticipantID,
		name,
		r.VideoFileName,
		formatTime(r.StartWatchingTime),
		formatTime(r.EndWatchingTime),
		formatScore(r.ExcitedIntensity), formatScore(r.ExcitedFrequency),
		formatScore(r.TenseIntensity), formatScore(r.TenseFrequency),
		formatScore(r.AnxiousIntensity), formatScore(r.AnxiousFrequency),
		formatScore(r.TerrifiedIntensity), formatScore(r.TerrifiedFrequency),
		formatScore(r.DesperateIntensity), formatScore(r.DesperateFrequency),
		formatScore(r.PhysicalDiscomfort),
		formatScore(r.PsychologicalDiscomfort),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
