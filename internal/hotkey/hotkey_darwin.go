//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

// Forward declaration for Go callback
extern void goHotkeyCallback(int pressed);

// Event handler for hotkeys
static OSStatus hotkeyHandler(EventHandlerCallRef nextHandler, EventRef theEvent, void* userData) {
    EventHotKeyID hkRef;
    GetEventParameter(theEvent, kEventParamDirectObject, typeEventHotKeyID, NULL, sizeof(hkRef), NULL, &hkRef);

    UInt32 eventKind = GetEventKind(theEvent);
    int pressed = (eventKind == kEventHotKeyPressed) ? 1 : 0;

    goHotkeyCallback(pressed);

    return noErr;
}

// Register hotkey with Carbon
static int registerHotkey(UInt32 keyCode, UInt32 modifiers) {
    EventTypeSpec eventTypes[2];
    eventTypes[0].eventClass = kEventClassKeyboard;
    eventTypes[0].eventKind = kEventHotKeyPressed;
    eventTypes[1].eventClass = kEventClassKeyboard;
    eventTypes[1].eventKind = kEventHotKeyReleased;

    EventHandlerUPP handlerUPP = NewEventHandlerUPP(hotkeyHandler);
    InstallApplicationEventHandler(handlerUPP, 2, eventTypes, NULL, NULL);

    EventHotKeyRef hotKeyRef;
    EventHotKeyID hotKeyID;
    hotKeyID.signature = 'htk1';
    hotKeyID.id = 1;

    OSStatus status = RegisterEventHotKey(keyCode, modifiers, hotKeyID, GetApplicationEventTarget(), 0, &hotKeyRef);

    return (status == noErr) ? 1 : 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
)

// Carbon modifier masks
const (
	cmdKey     = 0x100
	shiftKey   = 0x200
	optionKey  = 0x800
	controlKey = 0x1000
)

// keyCodes maps key names to Carbon virtual key codes (ANSI layout).
var keyCodes = map[string]uint32{
	"a": 0, "s": 1, "d": 2, "f": 3, "h": 4, "g": 5, "z": 6, "x": 7,
	"c": 8, "v": 9, "b": 11, "q": 12, "w": 13, "e": 14, "r": 15,
	"y": 16, "t": 17, "1": 18, "2": 19, "3": 20, "4": 21, "6": 22,
	"5": 23, "9": 25, "7": 26, "8": 28, "0": 29, "o": 31, "u": 32,
	"i": 34, "p": 35, "l": 37, "j": 38, "k": 40, "n": 45, "m": 46,
	"return": 36, "enter": 36, "tab": 48, "space": 49, "escape": 53, "esc": 53,
	"f1": 122, "f2": 120, "f3": 99, "f4": 118, "f5": 96, "f6": 97,
	"f7": 98, "f8": 100, "f9": 101, "f10": 109, "f11": 103, "f12": 111,
}

type darwinManager struct {
	mu       sync.Mutex
	callback func(bool)
}

var globalManager *darwinManager

// New creates a new macOS hotkey manager using Carbon
func New() (Manager, error) {
	mgr := &darwinManager{}
	return mgr, nil
}

//export goHotkeyCallback
func goHotkeyCallback(pressed C.int) {
	m := globalManager
	if m == nil {
		return
	}
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb != nil {
		cb(pressed == 1)
	}
}

// Only one hotkey is supported; registering again replaces the callback.
func (m *darwinManager) Register(accel string, callback func(pressed bool)) error {
	a, err := ParseAccel(accel)
	if err != nil {
		return err
	}
	keyCode, ok := keyCodes[a.Key]
	if !ok {
		return fmt.Errorf("unknown key %q", a.Key)
	}

	var modifiers uint32
	if a.Mods&ModShift != 0 {
		modifiers |= shiftKey
	}
	if a.Mods&ModCtrl != 0 {
		modifiers |= controlKey
	}
	if a.Mods&ModAlt != 0 {
		modifiers |= optionKey
	}
	if a.Mods&ModSuper != 0 {
		modifiers |= cmdKey
	}

	m.mu.Lock()
	m.callback = callback
	m.mu.Unlock()
	globalManager = m

	if C.registerHotkey(C.UInt32(keyCode), C.UInt32(modifiers)) == 0 {
		return fmt.Errorf("failed to register hotkey %q", accel)
	}

	return nil
}

func (m *darwinManager) Unregister(accel string) error {
	m.mu.Lock()
	m.callback = nil
	m.mu.Unlock()
	return nil
}

func (m *darwinManager) Close() error {
	globalManager = nil
	return nil
}
