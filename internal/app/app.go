package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/petems/camtray/internal/artifact"
	"github.com/petems/camtray/internal/config"
	"github.com/petems/camtray/internal/recorder"
	"github.com/petems/camtray/internal/snapshot"
	"github.com/rs/zerolog"
)

var (
	// ErrNoSession is returned while the capture session is not ready.
	ErrNoSession = errors.New("capture session not ready")
	// ErrNoRecording is returned when no take has been finalized yet.
	ErrNoRecording = errors.New("no recording available")
)

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetError()
}

// Session is the capture session the transport controls act on.
type Session interface {
	Recorder() *recorder.Recorder
	Close() error
}

// Snapshotter captures and downloads still frames.
type Snapshotter interface {
	Capture() (*artifact.Artifact, error)
	Download(a *artifact.Artifact) (string, error)
}

type Config struct {
	Session       Session
	Snapshots     Snapshotter
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
	// WriteClipboard defaults to the system clipboard.
	WriteClipboard func(text string) error
}

type App struct {
	session   Session
	snapshots Snapshotter
	cfg       *config.Config
	log       zerolog.Logger
	status    StatusUpdater
	clip      func(string) error

	mu sync.Mutex
}

func New(cfg Config) *App {
	clip := cfg.WriteClipboard
	if clip == nil {
		clip = clipboard.WriteAll
	}
	return &App{
		session:   cfg.Session,
		snapshots: cfg.Snapshots,
		cfg:       cfg.Config,
		log:       cfg.Logger,
		status:    cfg.StatusUpdater,
		clip:      clip,
	}
}

// OnHotkey toggles recording on key press.
func (a *App) OnHotkey(pressed bool) {
	if !pressed {
		return
	}
	a.ToggleRecording()
}

// ToggleRecording starts a take when idle and stops it when recording.
func (a *App) ToggleRecording() {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.session.Recorder()
	if rec == nil {
		a.reportLocked(ErrNoSession, "Cannot toggle recording")
		return
	}
	if rec.State() == recorder.Recording {
		a.stopLocked(rec)
	} else {
		a.startLocked(rec)
	}
}

func (a *App) StartRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.session.Recorder()
	if rec == nil {
		a.reportLocked(ErrNoSession, "Cannot start recording")
		return ErrNoSession
	}
	return a.startLocked(rec)
}

func (a *App) StopRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.session.Recorder()
	if rec == nil {
		a.reportLocked(ErrNoSession, "Cannot stop recording")
		return ErrNoSession
	}
	return a.stopLocked(rec)
}

func (a *App) startLocked(rec *recorder.Recorder) error {
	if err := rec.Start(); err != nil {
		a.reportLocked(err, "Failed to start recording")
		return err
	}
	if a.status != nil {
		a.status.SetRecording()
	}
	return nil
}

func (a *App) stopLocked(rec *recorder.Recorder) error {
	if err := rec.Stop(); err != nil {
		a.reportLocked(err, "Failed to stop recording")
		return err
	}
	if a.status != nil {
		a.status.SetIdle()
	}
	return nil
}

// reportLocked logs err. Wrong-state transport calls are warnings and leave
// the status untouched.
func (a *App) reportLocked(err error, msg string) {
	if errors.Is(err, recorder.ErrAlreadyRecording) || errors.Is(err, recorder.ErrNotRecording) {
		a.log.Warn().Err(err).Msg(msg)
		return
	}
	a.log.Error().Err(err).Msg(msg)
	if a.status != nil {
		a.status.SetError()
	}
}

// OnRecordingFinalized is invoked once a take has become an artifact.
func (a *App) OnRecordingFinalized(art *artifact.Artifact) {
	a.log.Info().Str("url", art.URL).Int("bytes", art.Size()).Msg("Recording ready")
}

func (a *App) IsRecording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.session.Recorder()
	return rec != nil && rec.State() == recorder.Recording
}

// Snapshot captures the current preview frame into the gallery.
func (a *App) Snapshot() (*artifact.Artifact, error) {
	shot, err := a.snapshots.Capture()
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to take snapshot")
		return nil, err
	}
	a.log.Info().Str("id", shot.ID).Int("width", shot.Width).Int("height", shot.Height).Msg("Snapshot taken")
	return shot, nil
}

// DownloadSnapshot saves shot, or the latest snapshot when shot is nil.
func (a *App) DownloadSnapshot(shot *artifact.Artifact) (string, error) {
	path, err := a.snapshots.Download(shot)
	if err != nil {
		if errors.Is(err, snapshot.ErrEmptyGallery) {
			a.log.Warn().Err(err).Msg("Nothing to download")
		} else {
			a.log.Error().Err(err).Msg("Failed to download snapshot")
		}
		return "", err
	}
	a.log.Info().Str("path", path).Msg("Snapshot downloaded")
	return path, nil
}

// DownloadRecording saves the last finalized recording to the download
// directory.
func (a *App) DownloadRecording() (string, error) {
	last, err := a.lastRecording()
	if err != nil {
		return "", err
	}

	path, err := artifact.Save(last, a.cfg.Snapshot.DownloadDir, a.cfg.Recorder.FileName)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to download recording")
		return "", fmt.Errorf("failed to save recording: %w", err)
	}
	a.log.Info().Str("path", path).Msg("Recording downloaded")
	return path, nil
}

// CopyRecordingURL puts the reference URL of the last recording on the
// clipboard.
func (a *App) CopyRecordingURL() (string, error) {
	last, err := a.lastRecording()
	if err != nil {
		return "", err
	}
	if err := a.clip(last.URL); err != nil {
		a.log.Error().Err(err).Msg("Failed to copy recording link")
		return "", fmt.Errorf("failed to write clipboard: %w", err)
	}
	a.log.Info().Str("url", last.URL).Msg("Recording link copied")
	return last.URL, nil
}

func (a *App) lastRecording() (*artifact.Artifact, error) {
	rec := a.session.Recorder()
	if rec == nil {
		a.log.Warn().Msg("Capture session not ready")
		return nil, ErrNoSession
	}
	last := rec.Last()
	if last == nil {
		a.log.Warn().Msg("No recording yet")
		return nil, ErrNoRecording
	}
	return last, nil
}

// Shutdown stops an active take and releases the capture session.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rec := a.session.Recorder(); rec != nil && rec.State() == recorder.Recording {
		a.stopLocked(rec)
	}

	if err := a.session.Close(); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}
