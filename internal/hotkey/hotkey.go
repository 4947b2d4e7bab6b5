package hotkey

import (
	"fmt"
	"strings"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a bit set of modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Accel is a parsed accelerator such as "Ctrl+Shift+R".
type Accel struct {
	Mods Modifier
	Key  string // lower case key name, e.g. "space", "r", "f5"
}

// ParseAccel parses "Mod+Mod+Key". Modifier names are case insensitive;
// Option and Cmd are accepted as aliases of Alt and Super.
func ParseAccel(s string) (Accel, error) {
	parts := strings.Split(s, "+")
	var a Accel
	for i, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return Accel{}, fmt.Errorf("invalid accelerator %q", s)
		}
		if i == len(parts)-1 {
			a.Key = p
			break
		}
		switch p {
		case "shift":
			a.Mods |= ModShift
		case "ctrl", "control":
			a.Mods |= ModCtrl
		case "alt", "option":
			a.Mods |= ModAlt
		case "super", "cmd", "command", "meta":
			a.Mods |= ModSuper
		default:
			return Accel{}, fmt.Errorf("unknown modifier %q in %q", p, s)
		}
	}
	if a.Key == "" {
		return Accel{}, fmt.Errorf("invalid accelerator %q", s)
	}
	return a, nil
}
