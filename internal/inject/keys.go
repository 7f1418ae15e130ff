package inject

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnknownKey is returned by LookupKey for names missing from the key table.
var ErrUnknownKey = errors.New("unknown key name")

// Code identifies a keyboard key. Character keys use CodeRune with the
// character stored in Key.Rune.
type Code uint16

const (
	CodeNone Code = iota

	CodeEnter
	CodeTab
	CodeEscape
	CodeBackspace
	CodeDelete
	CodeInsert
	CodeHome
	CodeEnd
	CodePageUp
	CodePageDown
	CodeSpace

	CodeUp
	CodeDown
	CodeLeft
	CodeRight

	CodeF1
	CodeF2
	CodeF3
	CodeF4
	CodeF5
	CodeF6
	CodeF7
	CodeF8
	CodeF9
	CodeF10
	CodeF11
	CodeF12

	CodeRune
)

type Key struct {
	Code Code
	Rune rune
}

type keyInfo struct {
	name    string
	keysym  string
	tmux    string
	escapes string
}

var keyTable = map[Code]keyInfo{
	CodeEnter:     {"enter", "Return", "Enter", "\r"},
	CodeTab:       {"tab", "Tab", "Tab", "\t"},
	CodeEscape:    {"esc", "Escape", "Escape", "\x1b"},
	CodeBackspace: {"backspace", "BackSpace", "BSpace", "\x7f"},
	CodeDelete:    {"delete", "Delete", "DC", "\x1b[3~"},
	CodeInsert:    {"insert", "Insert", "IC", "\x1b[2~"},
	CodeHome:      {"home", "Home", "Home", "\x1b[H"},
	CodeEnd:       {"end", "End", "End", "\x1b[F"},
	CodePageUp:    {"pageup", "Prior", "PPage", "\x1b[5~"},
	CodePageDown:  {"pagedown", "Next", "NPage", "\x1b[6~"},
	CodeSpace:     {"space", "space", "Space", " "},
	CodeUp:        {"up", "Up", "Up", "\x1b[A"},
	CodeDown:      {"down", "Down", "Down", "\x1b[B"},
	CodeLeft:      {"left", "Left", "Left", "\x1b[D"},
	CodeRight:     {"right", "Right", "Right", "\x1b[C"},
	CodeF1:        {"f1", "F1", "F1", "\x1bOP"},
	CodeF2:        {"f2", "F2", "F2", "\x1bOQ"},
	CodeF3:        {"f3", "F3", "F3", "\x1bOR"},
	CodeF4:        {"f4", "F4", "F4", "\x1bOS"},
	CodeF5:        {"f5", "F5", "F5", "\x1b[15~"},
	CodeF6:        {"f6", "F6", "F6", "\x1b[17~"},
	CodeF7:        {"f7", "F7", "F7", "\x1b[18~"},
	CodeF8:        {"f8", "F8", "F8", "\x1b[19~"},
	CodeF9:        {"f9", "F9", "F9", "\x1b[20~"},
	CodeF10:       {"f10", "F10", "F10", "\x1b[21~"},
	CodeF11:       {"f11", "F11", "F11", "\x1b[23~"},
	CodeF12:       {"f12", "F12", "F12", "\x1b[24~"},
}

// keyNames maps accepted (lowercase) names to key codes.
var keyNames = map[string]Code{
	"enter":     CodeEnter,
	"return":    CodeEnter,
	"cr":        CodeEnter,
	"tab":       CodeTab,
	"esc":       CodeEscape,
	"escape":    CodeEscape,
	"backspace": CodeBackspace,
	"bs":        CodeBackspace,
	"delete":    CodeDelete,
	"del":       CodeDelete,
	"insert":    CodeInsert,
	"ins":       CodeInsert,
	"home":      CodeHome,
	"end":       CodeEnd,
	"pageup":    CodePageUp,
	"pgup":      CodePageUp,
	"pagedown":  CodePageDown,
	"pgdn":      CodePageDown,
	"space":     CodeSpace,
	"up":        CodeUp,
	"down":      CodeDown,
	"left":      CodeLeft,
	"right":     CodeRight,
	"f1":        CodeF1,
	"f2":        CodeF2,
	"f3":        CodeF3,
	"f4":        CodeF4,
	"f5":        CodeF5,
	"f6":        CodeF6,
	"f7":        CodeF7,
	"f8":        CodeF8,
	"f9":        CodeF9,
	"f10":       CodeF10,
	"f11":       CodeF11,
	"f12":       CodeF12,
}

// LookupKey resolves a symbolic key name (case-insensitive). Single
// printable characters such as "a" or "7" resolve to character keys.
func LookupKey(name string) (Key, error) {
	trimmed := strings.TrimSpace(name)
	if code, ok := keyNames[strings.ToLower(trimmed)]; ok {
		return Key{Code: code}, nil
	}
	if utf8.RuneCountInString(trimmed) == 1 {
		r, _ := utf8.DecodeRuneInString(trimmed)
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return Key{Code: CodeRune, Rune: unicode.ToLower(r)}, nil
		}
	}
	return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

// Name returns the canonical lowercase name.
func (k Key) Name() string {
	if k.Code == CodeRune {
		return string(k.Rune)
	}
	if info, ok := keyTable[k.Code]; ok {
		return info.name
	}
	return "none"
}

func (k Key) String() string { return k.Name() }

// Keysym returns the X11/XKB keysym name used by xdotool and wtype.
func (k Key) Keysym() string {
	if k.Code == CodeRune {
		return string(k.Rune)
	}
	return keyTable[k.Code].keysym
}

// TmuxName returns the key name understood by tmux send-keys.
func (k Key) TmuxName() string {
	if k.Code == CodeRune {
		return string(k.Rune)
	}
	return keyTable[k.Code].tmux
}

// Sequence returns the bytes a VT100-style terminal sends for the key.
func (k Key) Sequence() string {
	if k.Code == CodeRune {
		return string(k.Rune)
	}
	return keyTable[k.Code].escapes
}
