package pager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chzyer/readline"
)

// ErrNotTerminal is returned when raw mode is requested on something that is not a terminal
var ErrNotTerminal = errors.New("not a terminal")

// RawSession holds a terminal in raw mode until Restore is called.
type RawSession struct {
	fd    int
	state *readline.State

	once sync.Once
	err  error
}

// EnterRaw switches the terminal behind fd to raw mode.
// Callers must defer Restore immediately.
func EnterRaw(fd int) (*RawSession, error) {
	if !readline.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := readline.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	return &RawSession{fd: fd, state: state}, nil
}

// Restore puts the terminal back in its original mode. Only the first call
// has an effect.
func (s *RawSession) Restore() error {
	s.once.Do(func() {
		if err := readline.Restore(s.fd, s.state); err != nil {
			s.err = fmt.Errorf("restore terminal: %w", err)
		}
	})
	return s.err
}
