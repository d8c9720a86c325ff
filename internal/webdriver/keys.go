package webdriver

import "strings"

// Key is a named key action. Its value is the code point the W3C WebDriver
// keys table assigns to it.
type Key rune

const (
	KeyNull           Key = '\uE000'
	KeyCancel         Key = '\uE001'
	KeyHelp           Key = '\uE002'
	KeyBackspace      Key = '\uE003'
	KeyTab            Key = '\uE004'
	KeyClear          Key = '\uE005'
	KeyReturn         Key = '\uE006'
	KeyEnter          Key = '\uE007'
	KeyShift          Key = '\uE008'
	KeyControl        Key = '\uE009'
	KeyAlt            Key = '\uE00A'
	KeyPause          Key = '\uE00B'
	KeyEscape         Key = '\uE00C'
	KeySpace          Key = '\uE00D'
	KeyPageUp         Key = '\uE00E'
	KeyPageDown       Key = '\uE00F'
	KeyEnd            Key = '\uE010'
	KeyHome           Key = '\uE011'
	KeyLeft           Key = '\uE012'
	KeyUp             Key = '\uE013'
	KeyRight          Key = '\uE014'
	KeyDown           Key = '\uE015'
	KeyInsert         Key = '\uE016'
	KeyDelete         Key = '\uE017'
	KeySemicolon      Key = '\uE018'
	KeyEquals         Key = '\uE019'
	KeyNumpad0        Key = '\uE01A'
	KeyNumpad1        Key = '\uE01B'
	KeyNumpad2        Key = '\uE01C'
	KeyNumpad3        Key = '\uE01D'
	KeyNumpad4        Key = '\uE01E'
	KeyNumpad5        Key = '\uE01F'
	KeyNumpad6        Key = '\uE020'
	KeyNumpad7        Key = '\uE021'
	KeyNumpad8        Key = '\uE022'
	KeyNumpad9        Key = '\uE023'
	KeyMultiply       Key = '\uE024'
	KeyAdd            Key = '\uE025'
	KeySeparator      Key = '\uE026'
	KeySubtract       Key = '\uE027'
	KeyDecimal        Key = '\uE028'
	KeyDivide         Key = '\uE029'
	KeyF1             Key = '\uE031'
	KeyF2             Key = '\uE032'
	KeyF3             Key = '\uE033'
	KeyF4             Key = '\uE034'
	KeyF5             Key = '\uE035'
	KeyF6             Key = '\uE036'
	KeyF7             Key = '\uE037'
	KeyF8             Key = '\uE038'
	KeyF9             Key = '\uE039'
	KeyF10            Key = '\uE03A'
	KeyF11            Key = '\uE03B'
	KeyF12            Key = '\uE03C'
	KeyMeta           Key = '\uE03D'
	KeyZenkakuHankaku Key = '\uE040'

	// KeyCommand is the macOS name for Meta.
	KeyCommand = KeyMeta
)

var keyNames = map[string]Key{
	"null": KeyNull, "cancel": KeyCancel, "help": KeyHelp, "backspace": KeyBackspace,
	"tab": KeyTab, "clear": KeyClear, "return": KeyReturn, "enter": KeyEnter,
	"shift": KeyShift, "control": KeyControl, "ctrl": KeyControl, "alt": KeyAlt,
	"pause": KeyPause, "escape": KeyEscape, "space": KeySpace, "pageup": KeyPageUp,
	"pagedown": KeyPageDown, "end": KeyEnd, "home": KeyHome, "left": KeyLeft,
	"up": KeyUp, "right": KeyRight, "down": KeyDown, "insert": KeyInsert,
	"delete": KeyDelete, "semicolon": KeySemicolon, "equals": KeyEquals,
	"numpad0": KeyNumpad0, "numpad1": KeyNumpad1, "numpad2": KeyNumpad2,
	"numpad3": KeyNumpad3, "numpad4": KeyNumpad4, "numpad5": KeyNumpad5,
	"numpad6": KeyNumpad6, "numpad7": KeyNumpad7, "numpad8": KeyNumpad8,
	"numpad9": KeyNumpad9, "multiply": KeyMultiply, "add": KeyAdd,
	"separator": KeySeparator, "subtract": KeySubtract, "decimal": KeyDecimal,
	"divide": KeyDivide, "f1": KeyF1, "f2": KeyF2, "f3": KeyF3, "f4": KeyF4,
	"f5": KeyF5, "f6": KeyF6, "f7": KeyF7, "f8": KeyF8, "f9": KeyF9,
	"f10": KeyF10, "f11": KeyF11, "f12": KeyF12, "meta": KeyMeta,
	"command": KeyCommand, "zenkakuhankaku": KeyZenkakuHankaku,
}

// ParseKey looks up a key by name, case-insensitively ("Control", "ctrl", "F5").
func ParseKey(name string) (Key, bool) {
	k, ok := keyNames[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// With returns the key followed by the literal text, e.g. KeyControl.With("a").
func (k Key) With(text string) TypingData {
	return Keys(k).AppendText(text)
}

// typingUnit is either a literal character or a key action, never both.
type typingUnit struct {
	char  rune
	key   Key
	isKey bool
}

// TypingData is an ordered sequence of literal characters and key actions.
// The zero value is empty and ready to use; values are never mutated in place.
type TypingData struct {
	units []typingUnit
}

// Text builds TypingData from literal characters only.
func Text(s string) TypingData {
	units := make([]typingUnit, 0, len(s))
	for _, r := range s {
		units = append(units, typingUnit{char: r})
	}
	return TypingData{units: units}
}

// Keys builds TypingData from key actions only.
func Keys(keys ...Key) TypingData {
	units := make([]typingUnit, 0, len(keys))
	for _, k := range keys {
		units = append(units, typingUnit{key: k, isKey: true})
	}
	return TypingData{units: units}
}

// Append returns a new TypingData with other appended after t.
func (t TypingData) Append(other ...TypingData) TypingData {
	n := len(t.units)
	for _, o := range other {
		n += len(o.units)
	}
	units := make([]typingUnit, 0, n)
	units = append(units, t.units...)
	for _, o := range other {
		units = append(units, o.units...)
	}
	return TypingData{units: units}
}

func (t TypingData) AppendText(s string) TypingData {
	return t.Append(Text(s))
}

func (t TypingData) AppendKeys(keys ...Key) TypingData {
	return t.Append(Keys(keys...))
}

// Len is the number of units.
func (t TypingData) Len() int {
	return len(t.units)
}

// KeyCount is the number of key actions in t.
func (t TypingData) KeyCount() int {
	n := 0
	for _, u := range t.units {
		if u.isKey {
			n++
		}
	}
	return n
}

// String renders t the way the remote driver expects it: literal characters
// as is, key actions as their code points, in order.
func (t TypingData) String() string {
	var b strings.Builder
	b.Grow(len(t.units))
	for _, u := range t.units {
		if u.isKey {
			b.WriteRune(rune(u.key))
			continue
		}
		b.WriteRune(u.char)
	}
	return b.String()
}
