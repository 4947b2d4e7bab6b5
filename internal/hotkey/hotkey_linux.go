//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

Display* displayPtr = NULL;

static int openDisplay() {
    if (displayPtr == NULL) {
        displayPtr = XOpenDisplay(NULL);
    }
    return displayPtr != NULL;
}

int keycodeFor(const char* name) {
    if (!openDisplay()) return 0;
    KeySym sym = XStringToKeysym(name);
    if (sym == NoSymbol) return 0;
    return XKeysymToKeycode(displayPtr, sym);
}

int grabKey(int keycode, int modifiers) {
    if (!openDisplay()) return 0;

    Window root = DefaultRootWindow(displayPtr);
    XGrabKey(displayPtr, keycode, modifiers, root, False, GrabModeAsync, GrabModeAsync);
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);

    return 1;
}

void ungrabKey(int keycode, int modifiers) {
    if (displayPtr == NULL) return;
    XUngrabKey(displayPtr, keycode, modifiers, DefaultRootWindow(displayPtr));
    XSync(displayPtr, False);
}

int checkEvent(int* keycode, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

type binding struct {
	keycode   int
	modifiers int
}

type linuxManager struct {
	mu        sync.Mutex
	callbacks map[int]func(bool)
	bindings  map[string]binding
	stop      chan struct{}
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	mgr := &linuxManager{
		callbacks: make(map[int]func(bool)),
		bindings:  make(map[string]binding),
		stop:      make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	b, err := resolve(accel)
	if err != nil {
		return err
	}

	if C.grabKey(C.int(b.keycode), C.int(b.modifiers)) == 0 {
		return fmt.Errorf("failed to grab key %q", accel)
	}

	m.mu.Lock()
	m.callbacks[b.keycode] = callback
	m.bindings[accel] = b
	m.mu.Unlock()
	return nil
}

// resolve maps an accelerator to an X11 keycode and modifier mask.
func resolve(accel string) (binding, error) {
	a, err := ParseAccel(accel)
	if err != nil {
		return binding{}, err
	}

	name := C.CString(x11KeyName(a.Key))
	defer C.free(unsafe.Pointer(name))

	keycode := int(C.keycodeFor(name))
	if keycode == 0 {
		return binding{}, fmt.Errorf("unknown key %q", a.Key)
	}

	var mods int
	if a.Mods&ModShift != 0 {
		mods |= C.ShiftMask
	}
	if a.Mods&ModCtrl != 0 {
		mods |= C.ControlMask
	}
	if a.Mods&ModAlt != 0 {
		mods |= C.Mod1Mask
	}
	if a.Mods&ModSuper != 0 {
		mods |= C.Mod4Mask
	}
	return binding{keycode: keycode, modifiers: mods}, nil
}

// x11KeyName converts a lower case key name to its keysym name.
func x11KeyName(key string) string {
	switch key {
	case "enter", "return":
		return "Return"
	case "esc", "escape":
		return "Escape"
	case "tab":
		return "Tab"
	}
	if len(key) > 1 && key[0] == 'f' {
		return "F" + key[1:]
	}
	return key
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			if C.checkEvent(&keycode, &pressed) != 0 {
				m.mu.Lock()
				cb, ok := m.callbacks[int(keycode)]
				m.mu.Unlock()
				if ok {
					cb(pressed == 1)
				}
			}
		}
	}
}

func (m *linuxManager) Unregister(accel string) error {
	m.mu.Lock()
	b, ok := m.bindings[accel]
	delete(m.bindings, accel)
	if ok {
		delete(m.callbacks, b.keycode)
	}
	m.mu.Unlock()

	if ok {
		C.ungrabKey(C.int(b.keycode), C.int(b.modifiers))
	}
	return nil
}

func (m *linuxManager) Close() error {
	close(m.stop)
	return nil
}
