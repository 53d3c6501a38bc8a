// Package pager implements an interactive, bidirectional log viewer for raw terminals.
package pager

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"

	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// Pager shows one log entry at a time and moves on key presses.
type Pager struct {
	log    offsetlogpkg.Log
	in     *bufio.Reader
	out    io.Writer
	keyLog io.Writer
}

// New creates a pager reading keys from in and drawing on out.
func New(log offsetlogpkg.Log, in io.Reader, out io.Writer) *Pager {
	return &Pager{
		log:    log,
		in:     bufio.NewReader(in),
		out:    out,
		keyLog: io.Discard,
	}
}

// WithKeyLog sets where unbound printable keys are echoed.
func (p *Pager) WithKeyLog(w io.Writer) *Pager {
	p.keyLog = w
	return p
}

// Run shows the first entry and handles keys until quit or end of input.
// At either end of the log the current entry stays on screen and
// "No record" is printed below it.
func (p *Pager) Run(ctx context.Context) error {
	cursor := offsetlog.Map(offsetlog.Iter(p.log), renderEntry)

	if err := p.step(cursor.Next()); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cursor.Err(); err != nil {
			return fmt.Errorf("read log: %w", err)
		}

		key, err := ReadKey(p.in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}

		switch ActionFor(key) {
		case ActionQuit:
			return nil
		case ActionNext:
			err = p.step(cursor.Next())
		case ActionPrev:
			err = p.step(cursor.Prev())
		default:
			if readline.IsPrintable(key) {
				fmt.Fprintf(p.keyLog, "KEY: %c\n", key)
			}
		}
		if err != nil {
			return err
		}
	}
}

func (p *Pager) step(item offsetlog.Item[screen], ok bool) error {
	var err error
	if ok {
		_, err = io.WriteString(p.out, item.Value.String())
	} else {
		_, err = io.WriteString(p.out, lineBreak+noRecord)
	}
	if err != nil {
		return fmt.Errorf("write screen: %w", err)
	}
	return nil
}
