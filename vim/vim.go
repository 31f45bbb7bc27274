// Package vim is the modal key state machine. It knows nothing about the
// buffer: Feed turns a key into an Action and the caller applies it.
package vim

import "strings"

// Mode represents the current vim editing mode.
type Mode int

const (
	// ModeNormal is the default mode for motions and commands.
	ModeNormal Mode = iota
	// ModeInsert types text into the buffer.
	ModeInsert
	// ModeCommand collects an ex command after ':'.
	ModeCommand
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeInsert:
		return "INSERT"
	case ModeCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// KeyKind classifies a key press.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEsc
	KeyEnter
	KeyBackspace
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyOther
)

// Key is a host key press reduced to what the machine reads.
type Key struct {
	Kind KeyKind
	Rune rune
}

// R is a printable key.
func R(r rune) Key { return Key{Kind: KeyRune, Rune: r} }

// Motion moves the caret.
type Motion int

const (
	MotionNone Motion = iota
	MotionLeft
	MotionRight
	MotionUp
	MotionDown
	MotionLineStart
	MotionLineEnd
	MotionWordForward
	MotionWordBack
)

// ActionKind says what the caller should do.
type ActionKind int

const (
	ActNone ActionKind = iota
	ActMove
	ActInsertBefore // i
	ActInsertAfter  // a
	ActOpenBelow    // o
	ActLeaveInsert
	ActInsertText
	ActNewline
	ActBackspace
	ActDeleteChar
	ActDeleteLine
	ActSave
	ActQuit
	ActSaveQuit
	ActUnknownCommand
)

// Action is the result of one key.
type Action struct {
	Kind    ActionKind
	Motion  Motion
	Text    string
	Command string
}

type transition struct {
	next   Mode
	action Action
}

var normalTable = map[rune]transition{
	'i': {ModeInsert, Action{Kind: ActInsertBefore}},
	'a': {ModeInsert, Action{Kind: ActInsertAfter}},
	'o': {ModeInsert, Action{Kind: ActOpenBelow}},
	':': {ModeCommand, Action{}},
	'h': {ModeNormal, Action{Kind: ActMove, Motion: MotionLeft}},
	'j': {ModeNormal, Action{Kind: ActMove, Motion: MotionDown}},
	'k': {ModeNormal, Action{Kind: ActMove, Motion: MotionUp}},
	'l': {ModeNormal, Action{Kind: ActMove, Motion: MotionRight}},
	'0': {ModeNormal, Action{Kind: ActMove, Motion: MotionLineStart}},
	'$': {ModeNormal, Action{Kind: ActMove, Motion: MotionLineEnd}},
	'w': {ModeNormal, Action{Kind: ActMove, Motion: MotionWordForward}},
	'b': {ModeNormal, Action{Kind: ActMove, Motion: MotionWordBack}},
	'x': {ModeNormal, Action{Kind: ActDeleteChar}},
}

var arrowMotions = map[KeyKind]Motion{
	KeyLeft:  MotionLeft,
	KeyRight: MotionRight,
	KeyUp:    MotionUp,
	KeyDown:  MotionDown,
}

var exCommands = map[string]ActionKind{
	"w":  ActSave,
	"q":  ActQuit,
	"q!": ActQuit,
	"wq": ActSaveQuit,
	"x":  ActSaveQuit,
}

// Machine tracks the mode, the pending operator and the command line.
type Machine struct {
	mode    Mode
	pending rune
	cmd     []rune
}

func New() *Machine { return &Machine{} }

func (m *Machine) Mode() Mode { return m.mode }

// CommandLine is the text typed after ':' so far.
func (m *Machine) CommandLine() string { return string(m.cmd) }

// Pending is the operator waiting for its second key, or 0.
func (m *Machine) Pending() rune { return m.pending }

// Reset returns to Normal mode with nothing pending.
func (m *Machine) Reset() {
	m.mode = ModeNormal
	m.pending = 0
	m.cmd = m.cmd[:0]
}

// Feed advances the machine by one key.
func (m *Machine) Feed(k Key) Action {
	switch m.mode {
	case ModeInsert:
		return m.feedInsert(k)
	case ModeCommand:
		return m.feedCommand(k)
	default:
		return m.feedNormal(k)
	}
}

func (m *Machine) feedNormal(k Key) Action {
	if mo, ok := arrowMotions[k.Kind]; ok {
		m.pending = 0
		return Action{Kind: ActMove, Motion: mo}
	}
	if k.Kind != KeyRune {
		m.pending = 0
		return Action{}
	}
	if m.pending == 'd' {
		m.pending = 0
		if k.Rune == 'd' {
			return Action{Kind: ActDeleteLine}
		}
		return Action{}
	}
	if k.Rune == 'd' {
		m.pending = 'd'
		return Action{}
	}
	t, ok := normalTable[k.Rune]
	if !ok {
		return Action{}
	}
	if t.next == ModeCommand {
		m.cmd = m.cmd[:0]
	}
	m.mode = t.next
	return t.action
}

func (m *Machine) feedInsert(k Key) Action {
	if mo, ok := arrowMotions[k.Kind]; ok {
		return Action{Kind: ActMove, Motion: mo}
	}
	switch k.Kind {
	case KeyEsc:
		m.mode = ModeNormal
		return Action{Kind: ActLeaveInsert}
	case KeyEnter:
		return Action{Kind: ActNewline}
	case KeyBackspace:
		return Action{Kind: ActBackspace}
	case KeyRune:
		return Action{Kind: ActInsertText, Text: string(k.Rune)}
	}
	return Action{}
}

func (m *Machine) feedCommand(k Key) Action {
	switch k.Kind {
	case KeyEsc:
		m.Reset()
		return Action{}
	case KeyBackspace:
		if len(m.cmd) == 0 {
			m.Reset()
			return Action{}
		}
		m.cmd = m.cmd[:len(m.cmd)-1]
		return Action{}
	case KeyEnter:
		line := strings.TrimSpace(string(m.cmd))
		m.Reset()
		if line == "" {
			return Action{}
		}
		if kind, ok := exCommands[line]; ok {
			return Action{Kind: kind, Command: line}
		}
		return Action{Kind: ActUnknownCommand, Command: line}
	case KeyRune:
		m.cmd = append(m.cmd, k.Rune)
	}
	return Action{}
}
