// yt-dlp subprocess [Engine] implementation
package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/shared"
)

const (
	defaultBinary       = "yt-dlp"
	defaultFFmpegBinary = "ffmpeg"
	defaultWaitDelay    = 5 * time.Second

	// progressPrefix marks stdout lines produced by progressTemplate.
	progressPrefix   = "ytq-progress "
	progressTemplate = "download:" + progressPrefix +
		`{"progress":%(progress.{status,downloaded_bytes,total_bytes,total_bytes_estimate,speed,eta,_percent_str,filename})j,` +
		`"info":%(info.{title,playlist_title,playlist_index,n_entries})j}`

	stderrTail = 4096
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// YTDLPOptions configures a [YTDLPService].
type YTDLPOptions struct {
	Binary       string
	FFmpegBinary string
	IgnoreErrors bool
	RecodeVideo  string
	ExtraArgs    []string
	WaitDelay    time.Duration
	Logger       *log.Logger
}

// YTDLPService implements [Engine] by running the yt-dlp binary.
type YTDLPService struct {
	binary       string
	ffmpegBinary string
	ignoreErrors bool
	recodeVideo  string
	extraArgs    []string
	waitDelay    time.Duration
	logger       *log.Logger
}

// NewYTDLPService creates a yt-dlp engine, filling unset options with defaults.
func NewYTDLPService(opts YTDLPOptions) *YTDLPService {
	if opts.Binary == "" {
		opts.Binary = defaultBinary
	}
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = defaultFFmpegBinary
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = defaultWaitDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &YTDLPService{
		binary:       opts.Binary,
		ffmpegBinary: opts.FFmpegBinary,
		ignoreErrors: opts.IgnoreErrors,
		recodeVideo:  opts.RecodeVideo,
		extraArgs:    opts.ExtraArgs,
		waitDelay:    opts.WaitDelay,
		logger:       opts.Logger,
	}
}

// Name returns the engine name.
func (y *YTDLPService) Name() string {
	return "yt-dlp"
}

// Check reports whether the configured binaries are installed.
func (y *YTDLPService) Check() DependencyReport {
	return DependencyStatus(y.binary, y.ffmpegBinary)
}

// Args builds the yt-dlp argument list for req.
func (y *YTDLPService) Args(req DownloadRequest) []string {
	args := []string{
		"--newline",
		"--no-colors",
		"--progress-template", progressTemplate,
	}
	if y.ffmpegBinary != defaultFFmpegBinary {
		args = append(args, "--ffmpeg-location", y.ffmpegBinary)
	}
	if req.FormatSpec != "" {
		args = append(args, "-f", req.FormatSpec)
	}
	if req.OutputTemplate != "" {
		args = append(args, "-o", req.OutputTemplate)
	}
	if req.ItemSelection != "" {
		args = append(args, "--playlist-items", req.ItemSelection)
	}
	if req.WriteThumbnail {
		args = append(args, "--write-thumbnail")
	}
	if y.ignoreErrors {
		args = append(args, "--ignore-errors")
	}
	if y.recodeVideo != "" {
		args = append(args, "--recode-video", y.recodeVideo)
	}
	args = append(args, y.extraArgs...)
	return append(args, req.SourceLocator)
}

// Download runs yt-dlp for req and feeds every progress line to hook.
//
// The hook is called from the stdout reader, so a hook that blocks stalls yt-dlp's output and with it the download.
// When hook returns an error the process is killed and the error is returned wrapped.
func (y *YTDLPService) Download(ctx context.Context, req DownloadRequest, hook ProgressHook) error {
	if strings.TrimSpace(req.SourceLocator) == "" {
		return fmt.Errorf("%w: source locator is required", shared.ErrInvalidInput)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := y.Args(req)
	cmd := exec.CommandContext(runCtx, y.binary, args...)
	cmd.WaitDelay = y.waitDelay

	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}

	logger := y.logger.With("source", req.SourceLocator)
	logger.Debug("starting yt-dlp", "args", args)

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s: %v", shared.ErrMissingDependency, y.binary, err)
		}
		return fmt.Errorf("start %s: %w", y.binary, err)
	}

	hookErr := y.readProgress(stdout, hook, logger)
	if hookErr != nil {
		cancel()
	}

	waitErr := cmd.Wait()
	switch {
	case hookErr != nil:
		return fmt.Errorf("progress hook aborted download: %w", hookErr)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", shared.ErrCancelled, ctx.Err())
	case waitErr != nil:
		if tail := strings.TrimSpace(stderr.String()); tail != "" {
			return fmt.Errorf("yt-dlp failed: %w: %s", waitErr, lastLine(tail))
		}
		return fmt.Errorf("yt-dlp failed: %w", waitErr)
	}
	return nil
}

// readProgress scans stdout until EOF or until hook returns an error.
//
// Output past a line the scanner cannot hold is drained unread so yt-dlp never blocks on a full pipe.
func (y *YTDLPService) readProgress(r io.Reader, hook ProgressHook, logger *log.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitByNewlineOrCR)

	for scanner.Scan() {
		line := scanner.Text()
		p, ok, err := ParseProgressLine(line)
		if err != nil {
			logger.Warn("unparseable progress line", "line", line, "error", err)
			continue
		}
		if !ok {
			if line = strings.TrimSpace(line); line != "" {
				logger.Debug(line)
			}
			continue
		}
		if hook == nil {
			continue
		}
		if err := hook(p); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("stdout read failed, discarding remaining output", "error", err)
		if _, err := io.Copy(io.Discard, r); err != nil {
			logger.Debug("stdout drain stopped", "error", err)
		}
	}
	return nil
}

type rawProgress struct {
	Progress struct {
		Status             string   `json:"status"`
		DownloadedBytes    *float64 `json:"downloaded_bytes"`
		TotalBytes         *float64 `json:"total_bytes"`
		TotalBytesEstimate *float64 `json:"total_bytes_estimate"`
		Speed              *float64 `json:"speed"`
		ETA                *float64 `json:"eta"`
		PercentStr         string   `json:"_percent_str"`
		Filename           string   `json:"filename"`
	} `json:"progress"`
	Info struct {
		Title         string `json:"title"`
		PlaylistTitle string `json:"playlist_title"`
		PlaylistIndex *int   `json:"playlist_index"`
		NEntries      *int   `json:"n_entries"`
	} `json:"info"`
}

// ParseProgressLine parses one line of yt-dlp output.
//
// ok is false for lines that are not progress reports. Missing or null numeric fields map to the unknown values
// documented on [Progress].
func ParseProgressLine(line string) (p Progress, ok bool, err error) {
	line = strings.TrimSpace(line)
	payload, found := strings.CutPrefix(line, progressPrefix)
	if !found {
		return Progress{}, false, nil
	}

	var raw rawProgress
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Progress{}, false, fmt.Errorf("decode progress: %w", err)
	}

	p = Progress{
		Status:             raw.Progress.Status,
		Filename:           raw.Progress.Filename,
		Title:              raw.Info.Title,
		PlaylistTitle:      raw.Info.PlaylistTitle,
		DownloadedBytes:    bytesOf(raw.Progress.DownloadedBytes),
		TotalBytes:         bytesOf(raw.Progress.TotalBytes),
		TotalBytesEstimate: bytesOf(raw.Progress.TotalBytesEstimate),
		PercentText:        strings.TrimSpace(ansiEscape.ReplaceAllString(raw.Progress.PercentStr, "")),
		ETA:                -1,
	}
	if s := raw.Progress.Speed; s != nil && *s > 0 && !math.IsInf(*s, 0) {
		p.Speed = *s
	}
	if e := raw.Progress.ETA; e != nil && *e >= 0 {
		p.ETA = int(math.Round(*e))
	}
	if idx := raw.Info.PlaylistIndex; idx != nil && *idx > 0 {
		p.ItemIndex = *idx
	}
	if n := raw.Info.NEntries; n != nil && *n > 0 {
		p.ItemCount = *n
	}
	return p, true, nil
}

func bytesOf(v *float64) int64 {
	if v == nil || *v <= 0 {
		return 0
	}
	return int64(*v)
}

// DependencyReport describes which external binaries are available.
type DependencyReport struct {
	YTDLPFound  bool   `json:"yt_dlp_found"`
	YTDLPPath   string `json:"yt_dlp_path,omitempty"`
	FFmpegFound bool   `json:"ffmpeg_found"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
}

// Err returns an error naming the first missing binary, or nil.
func (r DependencyReport) Err() error {
	if !r.YTDLPFound {
		return fmt.Errorf("%w: yt-dlp is not installed or not on PATH", shared.ErrMissingDependency)
	}
	if !r.FFmpegFound {
		return fmt.Errorf("%w: ffmpeg is required to merge most formats and was not found on PATH", shared.ErrMissingDependency)
	}
	return nil
}

// DependencyStatus looks up the yt-dlp and ffmpeg binaries on PATH.
func DependencyStatus(ytdlpBinary, ffmpegBinary string) DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath(ytdlpBinary); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	if path, err := exec.LookPath(ffmpegBinary); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	return report
}

// splitByNewlineOrCR is a [bufio.SplitFunc] treating both '\n' and '\r' as line ends.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func lastLine(s string) string {
	if i := strings.LastIndexAny(s, "\r\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
