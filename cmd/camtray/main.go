package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/petems/camtray/internal/analyser"
	"github.com/petems/camtray/internal/app"
	"github.com/petems/camtray/internal/artifact"
	"github.com/petems/camtray/internal/canvas"
	"github.com/petems/camtray/internal/config"
	"github.com/petems/camtray/internal/devices"
	"github.com/petems/camtray/internal/hotkey"
	"github.com/petems/camtray/internal/logging"
	"github.com/petems/camtray/internal/media"
	"github.com/petems/camtray/internal/platform"
	"github.com/petems/camtray/internal/preview"
	"github.com/petems/camtray/internal/recorder"
	"github.com/petems/camtray/internal/session"
	"github.com/petems/camtray/internal/snapshot"
	"github.com/petems/camtray/internal/tray"
	"github.com/petems/camtray/internal/waveform"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Camera and microphone backends
	plat, err := platform.New(platform.Config{
		Audio:    cfg.Audio,
		Recorder: cfg.Recorder,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize media platform")
	}
	defer plat.Close()

	// Initialize hotkey manager
	hkManager, err := hotkey.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize hotkeys")
	}
	defer hkManager.Close()

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, cfg, log, Version, Commit) // App reference set below

	store := artifact.NewStore()

	sink := preview.New(preview.Config{
		Logger: log,
		OnPlaying: func(w, h int) {
			log.Info().Int("width", w).Int("height", h).Msg("Preview playing")
		},
	})

	capturer := snapshot.New(snapshot.Config{
		Source:      sink,
		Store:       store,
		Gallery:     snapshot.NewGallery(snapshot.GalleryCapacity, trayUI.OnGalleryChange),
		DownloadDir: cfg.Snapshot.DownloadDir,
		FileName:    cfg.Snapshot.FileName,
		Logger:      log,
	})

	var application *app.App

	sess := session.New(session.Config{
		Acquirer:  plat,
		Connected: trayUI.Connected,
		Logger:    log,
		Preview:   sink,
		NewRecorder: func(s media.Stream) (*recorder.Recorder, error) {
			provider, err := plat.NewRecordingProvider(s, frameSize(sink, cfg.Constraints))
			if err != nil {
				return nil, err
			}
			return recorder.New(recorder.Config{
				Provider: provider,
				Store:    store,
				Player:   trayUI,
				MimeType: cfg.Recorder.MimeType,
				Logger:   log,
				OnFinalized: func(a *artifact.Artifact) {
					application.OnRecordingFinalized(a)
				},
			}), nil
		},
		NewRenderer: func(s media.Stream) (*waveform.Renderer, error) {
			tracks := s.AudioTracks()
			if len(tracks) == 0 {
				return nil, errors.New("stream has no audio track")
			}
			an, err := analyser.New(tracks[0], cfg.Waveform.FFTSize)
			if err != nil {
				return nil, err
			}
			return waveform.New(waveform.Config{
				Analyser: an,
				Canvas:   canvas.New(cfg.Waveform.Width, cfg.Waveform.Height),
				FPS:      cfg.Waveform.FPS,
				Logger:   log,
				Present:  trayUI.PresentWaveform,
			}), nil
		},
		OnReady: func(*session.Session) {
			log.Info().Msg("Capture session ready")
		},
	})

	// Create app with tray as status updater
	application = app.New(app.Config{
		Session:       sess,
		Snapshots:     capturer,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	// Register global hotkey
	if err := hkManager.Register(cfg.PlatformHotkey(), application.OnHotkey); err != nil {
		log.Error().Err(err).Msg("Failed to register hotkey")
	}

	log.Info().Msg("CamTray starting...")

	// Device listing and stream acquisition are independent; a failure of one
	// leaves the other untouched.
	var g errgroup.Group
	lister := devices.New(plat, trayUI.Detected, log)
	g.Go(func() error {
		lister.List(ctx)
		return nil
	})
	g.Go(func() error {
		return sess.Init(ctx, cfg.Constraints)
	})
	go func() {
		if err := g.Wait(); err != nil {
			log.Warn().Err(err).Msg("Startup incomplete")
		}
	}()

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Tray error")
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// frameSize reports the preview dimensions, falling back to the ideal
// requested size before the first frame.
func frameSize(sink *preview.Sink, c media.Constraints) func() (int, int) {
	return func() (int, int) {
		w, h := sink.Size()
		if (w == 0 || h == 0) && c.Video != nil {
			return c.Video.Width.Ideal, c.Video.Height.Ideal
		}
		return w, h
	}
}
