//go:build !darwin

package permissions

// EnsureCapture is a no-op on non-macOS platforms; device access errors
// surface when the device is opened.
func EnsureCapture(audio, video bool) error {
	return nil
}
