package pager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// Banner is the help line shown above every entry.
const Banner = "Press `j` or `k` to show the next or previous entry. Press `q` to exit."

const (
	clearScreen = "\x1b[2J"
	rowOne      = "\x1b[1;1H"
	rowTwo      = "\x1b[2;1H"

	// Raw mode does not translate \n, so every line break also returns the carriage.
	lineBreak = "\n\r"

	noRecord = "No record"
)

// screen is the pre-rendered display of one entry. It depends on the entry
// alone, so it can be computed by the cursor in either direction.
type screen struct {
	offset uint64
	body   string
}

func renderEntry(e offsetlogpkg.Entry) screen {
	return screen{offset: e.Offset, body: renderBody(e)}
}

func renderBody(e offsetlogpkg.Entry) string {
	if e.IsPadding() {
		return lineBreak + fmt.Sprintf("Padding entry (%d bytes)", e.Size())
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, e.Data, "", "  "); err != nil {
		return lineBreak + "Cannot display entry: " + err.Error()
	}

	var b strings.Builder
	for _, line := range strings.Split(pretty.String(), "\n") {
		b.WriteString(lineBreak)
		b.WriteString(line)
	}
	return b.String()
}

// String returns the full terminal output for the screen.
func (s screen) String() string {
	return clearScreen + rowOne + Banner + rowTwo + fmt.Sprintf("Offset: %d", s.offset) + s.body
}
