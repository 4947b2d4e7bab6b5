//go:build !linux && !darwin

package hotkey

import "errors"

type noopManager struct{}

// New returns a manager that cannot register global hotkeys on this
// platform. The tray menu remains the way to control recording.
func New() (Manager, error) {
	return noopManager{}, nil
}

func (noopManager) Register(accel string, callback func(pressed bool)) error {
	return errors.New("global hotkeys are not supported on this platform")
}

func (noopManager) Unregister(accel string) error { return nil }

func (noopManager) Close() error { return nil }
