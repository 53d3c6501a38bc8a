package pager

import (
	"bufio"

	"github.com/chzyer/readline"
)

// Action is what a key press asks the pager to do.
type Action int

const (
	// ActionNone ignores the key
	ActionNone Action = iota
	// ActionNext shows the following entry
	ActionNext
	// ActionPrev shows the preceding entry
	ActionPrev
	// ActionQuit leaves the pager
	ActionQuit
)

// ReadKey reads one key press from a raw terminal. Arrow keys are reported
// with readline's control runes (CharPrev, CharNext, CharForward, CharBackward),
// and a lone Esc as readline.CharEsc.
func ReadKey(r *bufio.Reader) (rune, error) {
	key, _, err := r.ReadRune()
	if err != nil {
		return 0, err
	}
	if key != readline.CharEsc || r.Buffered() == 0 {
		return key, nil
	}

	// An escape sequence arrives in one read; anything else after Esc is a new key.
	next, _, err := r.ReadRune()
	if err != nil {
		return readline.CharEsc, nil
	}
	if next != '[' && next != 'O' {
		_ = r.UnreadRune()
		return readline.CharEsc, nil
	}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, nil
		}
		if b < 0x40 || b > 0x7e {
			continue // parameter bytes
		}
		switch b {
		case 'A':
			return readline.CharPrev, nil
		case 'B':
			return readline.CharNext, nil
		case 'C':
			return readline.CharForward, nil
		case 'D':
			return readline.CharBackward, nil
		default:
			return 0, nil
		}
	}
}

// ActionFor maps a key to a pager action.
func ActionFor(key rune) Action {
	switch key {
	case 'q', readline.CharInterrupt, readline.CharEsc:
		return ActionQuit
	case 'j', 'n', readline.CharNext, readline.CharForward:
		return ActionNext
	case 'k', 'p', readline.CharPrev, readline.CharBackward:
		return ActionPrev
	default:
		return ActionNone
	}
}
