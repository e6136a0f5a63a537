// Package ytdlp wraps the yt-dlp binary for probing and downloading
// YouTube videos. Invocations are governed by the same rate and
// concurrency budgets as HTTP providers.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/asotbz/fuzzbin/internal/infra"
	"github.com/asotbz/fuzzbin/internal/ratelimit"
)

// Options configures the downloader.
type Options struct {
	// Path is the yt-dlp binary. Defaults to "yt-dlp" on PATH.
	Path   string
	Logger *infra.Logger

	PerMinute     float64
	Burst         float64
	MaxConcurrent int
	// Timeout bounds a single invocation. Defaults to 10 minutes.
	Timeout time.Duration
}

// Metadata is the subset of yt-dlp's JSON dump the import pipeline needs.
type Metadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Ext      string  `json:"ext"`
	Duration float64 `json:"duration"`
}

// runFunc executes the binary; swapped out in tests.
type runFunc func(ctx context.Context, bin string, args ...string) ([]byte, error)

// Downloader shells out to yt-dlp.
type Downloader struct {
	bin     string
	timeout time.Duration
	logger  *infra.Logger
	gov     *ratelimit.Governor
	run     runFunc
}

// NewDownloader builds a downloader with its own governed budgets.
func NewDownloader(opts Options) (*Downloader, error) {
	bin := strings.TrimSpace(opts.Path)
	if bin == "" {
		bin = "yt-dlp"
	}
	perMinute := opts.PerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{PerMinute: perMinute, Burst: opts.Burst})
	if err != nil {
		return nil, fmt.Errorf("ytdlp: limiter: %w", err)
	}
	sem, err := ratelimit.NewSemaphore(maxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("ytdlp: semaphore: %w", err)
	}
	gov, err := ratelimit.NewGovernor(ratelimit.GovernorOptions{Limiter: limiter, Sem: sem})
	if err != nil {
		return nil, fmt.Errorf("ytdlp: governor: %w", err)
	}

	return &Downloader{
		bin:     bin,
		timeout: timeout,
		logger:  logger,
		gov:     gov,
		run:     execRun,
	}, nil
}

// Governor exposes the downloader's call budgets.
func (d *Downloader) Governor() *ratelimit.Governor { return d.gov }

// Probe fetches video metadata without downloading.
func (d *Downloader) Probe(ctx context.Context, youtubeID string) (*Metadata, error) {
	var meta Metadata
	err := d.gov.Do(ctx, func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		out, err := d.run(ctx, d.bin, "--dump-json", "--no-download", watchURL(youtubeID))
		if err != nil {
			return false, err
		}
		if err := json.Unmarshal(out, &meta); err != nil {
			return false, fmt.Errorf("ytdlp: parse metadata: %w", err)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Download fetches the best mp4 rendition into destDir and returns the
// written path. A cancelled context kills the subprocess; the caller is
// responsible for removing any partial file.
func (d *Downloader) Download(ctx context.Context, youtubeID, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("ytdlp: ensure dest dir: %w", err)
	}
	dest := filepath.Join(destDir, youtubeID+".mp4")
	err := d.gov.Do(ctx, func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		d.logger.Debug().Str("youtube_id", youtubeID).Str("dest", dest).Msg("ytdlp: download started")
		_, err := d.run(ctx, d.bin,
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--merge-output-format", "mp4",
			"--no-playlist",
			"-o", dest,
			watchURL(youtubeID),
		)
		return false, err
	})
	if err != nil {
		return dest, err
	}
	return dest, nil
}

func watchURL(youtubeID string) string {
	return "https://www.youtube.com/watch?v=" + youtubeID
}

func execRun(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("ytdlp: %s: %w", bin, err)
		}
		return nil, fmt.Errorf("ytdlp: %s: %s: %w", bin, msg, err)
	}
	return stdout.Bytes(), nil
}
