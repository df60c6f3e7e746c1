package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kdimtricp/emostim/internal/client"
	"github.com/kdimtricp/emostim/internal/experiment"
	"github.com/kdimtricp/emostim/internal/models"
	"github.com/kdimtricp/emostim/internal/session"
)

// terminal plays videos and collects ratings on a text console.
type terminal struct {
	in      *bufio.Scanner
	out     io.Writer
	api     *client.Client
	playCmd []string
	workDir string
}

func (t *terminal) Play(ctx context.Context, video string) error {
	path := filepath.Join(t.workDir, filepath.Base(video))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	n, err := t.api.DownloadVideo(ctx, video, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(t.out, "\nNow playing %s (%d bytes)\n", video, n)
	if len(t.playCmd) > 0 {
		args := append(append([]string{}, t.playCmd[1:]...), path)
		cmd := exec.CommandContext(ctx, t.playCmd[0], args...)
		cmd.Stdout = t.out
		cmd.Stderr = t.out
		return cmd.Run()
	}

	fmt.Fprint(t.out, "Press Enter when the video has finished (s to skip): ")
	line, err := t.readLine()
	if err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(line), "s") {
		return session.ErrSkipped
	}
	return nil
}

func (t *terminal) Rate(ctx context.Context, video string) (experiment.ResponseInput, error) {
	var in experiment.ResponseInput
	emotions := map[string][2]*float64{
		"excited":   {&in.ExcitedIntensity, &in.ExcitedFrequency},
		"tense":     {&in.TenseIntensity, &in.TenseFrequency},
		"anxious":   {&in.AnxiousIntensity, &in.AnxiousFrequency},
		"terrified": {&in.TerrifiedIntensity, &in.TerrifiedFrequency},
		"desperate": {&in.DesperateIntensity, &in.DesperateFrequency},
	}

	fmt.Fprintf(t.out, "\nRate %s on a scale from 0 to 10.\n", video)
	for _, emotion := range models.Emotions {
		dst := emotions[emotion]
		for i, aspect := range []string{"intensity", "frequency"} {
			v, err := t.readScore(fmt.Sprintf("  %s %s: ", emotion, aspect))
			if err != nil {
				return in, err
			}
			*dst[i] = v
		}
	}

	var err error
	if in.PhysicalDiscomfort, err = t.readScore("  physical discomfort: "); err != nil {
		return in, err
	}
	if in.PsychologicalDiscomfort, err = t.readScore("  psychological discomfort: "); err != nil {
		return in, err
	}
	return in, nil
}

func (t *terminal) readScore(prompt string) (float64, error) {
	for {
		fmt.Fprint(t.out, prompt)
		line, err := t.readLine()
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err == nil && v >= 0 && v <= 10 {
			return v, nil
		}
		fmt.Fprintln(t.out, "  please enter a number from 0 to 10")
	}
}

func (t *terminal) readLine() (string, error) {
	if t.in.Scan() {
		return t.in.Text(), nil
	}
	if err := t.in.Err(); err != nil {
		return "", err
	}
	return "", errors.New("input closed")
}
