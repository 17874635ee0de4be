// Package audio splits oversized recordings into overlapping chunks that fit
// the speech-to-text upload ceiling.
package audio

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/task"
)

// Chunk is one time window of a source file. Original chunks point at the
// source itself and must not be deleted by the caller.
type Chunk struct {
	Index    int
	Start    time.Duration
	End      time.Duration
	Path     string
	Original bool
}

// SegmenterConfig holds the ffmpeg binaries and window geometry.
type SegmenterConfig struct {
	FFmpegPath  string
	FFprobePath string
	MaxBytes    int64
	Window      time.Duration
	Overlap     time.Duration
	Bitrate     string
	Runner      CommandRunner // nil runs the binaries with os/exec
}

// Segmenter cuts audio with ffmpeg.
type Segmenter struct {
	cfg    SegmenterConfig
	runner CommandRunner
	stat   func(string) (os.FileInfo, error)
	remove func(string) error
	log    zerolog.Logger
}

// NewSegmenter returns a Segmenter that shells out to the configured binaries.
func NewSegmenter(cfg SegmenterConfig, log zerolog.Logger) *Segmenter {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Bitrate == "" {
		cfg.Bitrate = "64k"
	}
	var runner CommandRunner = execRunner{}
	if cfg.Runner != nil {
		runner = cfg.Runner
	}
	return &Segmenter{
		cfg:    cfg,
		runner: runner,
		stat:   os.Stat,
		remove: os.Remove,
		log:    log,
	}
}

// Plan lays out windows over total duration. Consecutive windows share
// overlap; the last window ends exactly at total.
func Plan(total, window, overlap time.Duration) []Chunk {
	if total <= 0 {
		return nil
	}
	if window <= 0 || window >= total {
		return []Chunk{{Index: 0, Start: 0, End: total}}
	}
	if overlap < 0 || overlap >= window {
		overlap = 0
	}

	var chunks []Chunk
	for start := time.Duration(0); start < total; {
		end := start + window
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Start: start, End: end})
		if end < total {
			start = end - overlap
		} else {
			start = end
		}
	}
	return chunks
}

// Split returns the chunks to transcribe for path. Files within the size
// ceiling come back as a single Original chunk. On failure any chunk files
// already written are removed.
func (s *Segmenter) Split(ctx context.Context, path string) ([]Chunk, error) {
	info, err := s.stat(path)
	if err != nil {
		return nil, &task.MediaDecodeError{Path: path, Err: err}
	}
	if s.cfg.MaxBytes <= 0 || info.Size() <= s.cfg.MaxBytes {
		return []Chunk{{Index: 0, Path: path, Original: true}}, nil
	}

	total, err := s.probeDuration(ctx, path)
	if err != nil {
		return nil, err
	}

	plan := Plan(total, s.cfg.Window, s.cfg.Overlap)
	s.log.Info().
		Str("path", path).
		Int64("size", info.Size()).
		Dur("duration", total).
		Int("chunks", len(plan)).
		Msg("splitting oversized audio")

	for i := range plan {
		c := &plan[i]
		c.Path = fmt.Sprintf("%s_chunk%d.mp3", path, c.Index)
		args := cutArgs(path, c.Path, c.Start, c.End-c.Start, s.cfg.Bitrate)
		res, err := s.runner.Run(ctx, s.cfg.FFmpegPath, args...)
		if err != nil {
			s.Cleanup(plan[:i+1])
			return nil, &task.MediaDecodeError{Path: path, Stderr: lastLine(res.Stderr), Err: err}
		}
		if ci, err := s.stat(c.Path); err == nil {
			s.log.Debug().
				Int("chunk", c.Index).
				Dur("start", c.Start).
				Dur("end", c.End).
				Int64("size", ci.Size()).
				Msg("chunk written")
		}
	}
	return plan, nil
}

// Cleanup removes chunk files, leaving original sources in place.
func (s *Segmenter) Cleanup(chunks []Chunk) {
	for _, c := range chunks {
		if c.Original || c.Path == "" {
			continue
		}
		if err := s.remove(c.Path); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", c.Path).Msg("failed to remove chunk")
		}
	}
}

func (s *Segmenter) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	res, err := s.runner.Run(ctx, s.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, &task.MediaDecodeError{Path: path, Stderr: lastLine(res.Stderr), Err: err}
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil || secs <= 0 {
		return 0, &task.MediaDecodeError{
			Path: path,
			Err:  fmt.Errorf("unusable duration %q", strings.TrimSpace(res.Stdout)),
		}
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func cutArgs(in, out string, start, length time.Duration, bitrate string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", seconds(start),
		"-t", seconds(length),
		"-i", in,
		"-vn",
		"-ac", "1",
		"-b:a", bitrate,
		"-f", "mp3",
		out,
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
