package tray

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
	"github.com/petems/camtray/internal/app"
	"github.com/petems/camtray/internal/artifact"
	"github.com/petems/camtray/internal/canvas"
	"github.com/petems/camtray/internal/config"
	"github.com/petems/camtray/internal/logging"
	"github.com/petems/camtray/internal/snapshot"
	"github.com/rs/zerolog"
)

// thumbSize is the edge of gallery menu icons in pixels.
const thumbSize = 32

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	// Detected and Connected back the device submenus. They buffer lines
	// appended before the menu exists.
	Detected  *MenuList
	Connected *MenuList

	mu       sync.Mutex
	ready    bool
	items    []*artifact.Artifact
	slots    []*systray.MenuItem
	recorded string

	// Menu items
	mStart     *systray.MenuItem
	mStop      *systray.MenuItem
	mSnapshot  *systray.MenuItem
	mDownload  *systray.MenuItem
	mDownRec   *systray.MenuItem
	mCopyLink  *systray.MenuItem
	mDetected  *systray.MenuItem
	mConnected *systray.MenuItem
	mGallery   *systray.MenuItem
	mWaveform  *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetRecording() {
	u.updateStatus("recording")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

func New(application *app.App, cfg *config.Config, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		app:       application,
		cfg:       cfg,
		version:   version,
		commit:    commit,
		log:       log,
		Detected:  &MenuList{},
		Connected: &MenuList{},
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Run blocks until Quit is selected or ctx is canceled.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.updateStatus("idle")
	systray.SetTooltip("Camera and microphone capture")

	// Build menu
	u.mStart = systray.AddMenuItem("Start Recording", "Record camera and microphone")
	u.mStop = systray.AddMenuItem("Stop Recording", "Finish the current recording")
	u.mDownRec = systray.AddMenuItem("Download Recording", "Save the last recording")
	u.mCopyLink = systray.AddMenuItem("Copy Recording Link", "Copy the link of the last recording")
	u.mDownRec.Disable()
	u.mCopyLink.Disable()
	systray.AddSeparator()

	u.mSnapshot = systray.AddMenuItem("Take Snapshot", "Capture the current frame")
	u.mDownload = systray.AddMenuItem("Download Snapshot", "Save the latest snapshot")
	u.mGallery = systray.AddMenuItem("Gallery", "Recent snapshots")
	u.buildGalleryMenu()
	systray.AddSeparator()

	u.mDetected = systray.AddMenuItem("Detected Devices", "Media devices on this system")
	u.mConnected = systray.AddMenuItem("Connected Devices", "Devices used by the capture session")
	u.Detected.bind(func(line string) { u.mDetected.AddSubMenuItem(line, "").Disable() })
	u.Connected.bind(func(line string) { u.mConnected.AddSubMenuItem(line, "").Disable() })

	u.mWaveform = systray.AddMenuItemCheckbox("Waveform Icon", "Show the microphone waveform as the tray icon", u.cfg.Waveform.Enabled)

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About CamTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.refreshLocked()
	u.mu.Unlock()

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStart.ClickedCh:
			u.app.StartRecording()
		case <-u.mStop.ClickedCh:
			u.app.StopRecording()
		case <-u.mDownRec.ClickedCh:
			u.app.DownloadRecording()
		case <-u.mCopyLink.ClickedCh:
			u.app.CopyRecordingURL()
		case <-u.mSnapshot.ClickedCh:
			u.app.Snapshot()
		case <-u.mDownload.ClickedCh:
			u.app.DownloadSnapshot(nil)
		case <-u.mWaveform.ClickedCh:
			u.toggleWaveform()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildGalleryMenu() {
	u.slots = make([]*systray.MenuItem, snapshot.GalleryCapacity)
	for i := range u.slots {
		item := u.mGallery.AddSubMenuItem("", "Download this snapshot")
		item.Hide()
		u.slots[i] = item

		go func(slot int, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				u.mu.Lock()
				var shot *artifact.Artifact
				if slot < len(u.items) {
					shot = u.items[slot]
				}
				u.mu.Unlock()
				if shot != nil {
					u.app.DownloadSnapshot(shot)
				}
			}
		}(i, item)
	}
}

// OnGalleryChange mirrors the gallery into the menu slots, oldest first.
func (u *UI) OnGalleryChange(items, evicted []*artifact.Artifact) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.items = items
	for _, a := range evicted {
		u.log.Debug().Str("id", a.ID).Msg("Snapshot evicted from gallery")
	}
	if u.ready {
		u.refreshLocked()
	}
}

func (u *UI) refreshLocked() {
	for i, slot := range u.slots {
		if i >= len(u.items) {
			slot.Hide()
			continue
		}
		a := u.items[i]
		slot.SetTitle(galleryTitle(i, a))
		if icon, err := thumbnailIcon(a); err != nil {
			u.log.Error().Err(err).Str("id", a.ID).Msg("Failed to build snapshot thumbnail")
		} else {
			slot.SetIcon(icon)
		}
		slot.Show()
	}

	if u.recorded != "" {
		u.mDownRec.Enable()
		u.mCopyLink.Enable()
	}
}

// SetSource binds a finished recording to the menu.
func (u *UI) SetSource(url string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.recorded = url
	if u.ready {
		u.mDownRec.Enable()
		u.mCopyLink.Enable()
		u.mCopyLink.SetTooltip(url)
	}
}

// PresentWaveform shows the waveform canvas as the tray icon.
func (u *UI) PresentWaveform(img *image.RGBA) {
	u.mu.Lock()
	ready, enabled := u.ready, u.cfg.Waveform.Enabled
	u.mu.Unlock()
	if !ready || !enabled {
		return
	}

	icon, err := canvas.EncodePNG(img)
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to encode waveform icon")
		return
	}
	systray.SetIcon(icon)
}

func (u *UI) toggleWaveform() {
	u.mu.Lock()
	u.cfg.Waveform.Enabled = !u.cfg.Waveform.Enabled
	enabled := u.cfg.Waveform.Enabled
	u.mu.Unlock()

	if enabled {
		u.mWaveform.Check()
		u.log.Info().Msg("Enabled waveform icon")
	} else {
		u.mWaveform.Uncheck()
		u.log.Info().Msg("Disabled waveform icon")
	}
	if err := u.cfg.Save(); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
}

func (u *UI) openLogs() {
	path := logging.LogPath()
	cmd := openCommand(runtime.GOOS, path)
	if err := cmd.Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
	}
}

func openCommand(goos, path string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("CamTray: camera and microphone capture")
}

func (u *UI) onExit() {
	u.mu.Lock()
	u.ready = false
	u.mu.Unlock()
}

// updateStatus sets the tray title with camera emoji and status indicator
func (u *UI) updateStatus(status string) {
	emoji := emojiForStatus(status)
	systray.SetTitle(fmt.Sprintf("📷 %s", emoji))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "recording":
		return "🔴" // Red - recording
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

func galleryTitle(slot int, a *artifact.Artifact) string {
	return fmt.Sprintf("Snapshot %d (%dx%d, %s)", slot+1, a.Width, a.Height, a.Created.Format("15:04:05"))
}

// thumbnailIcon decodes a PNG snapshot and scales it down for a menu icon.
func thumbnailIcon(a *artifact.Artifact) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return canvas.EncodePNG(canvas.Thumbnail(img, thumbSize))
}

// MenuList is a device list rendered as disabled submenu entries.
type MenuList struct {
	mu    sync.Mutex
	lines []string
	add   func(line string)
}

// Append adds line below the existing entries.
func (l *MenuList) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, line)
	if l.add != nil {
		l.add(line)
	}
}

// Lines returns the entries in display order.
func (l *MenuList) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// bind attaches the menu and replays buffered lines in order.
func (l *MenuList) bind(add func(line string)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.add = add
	for _, line := range l.lines {
		add(line)
	}
}
