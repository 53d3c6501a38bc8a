package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, 1000)

	p.update(0, false, 0, 0)   // 0%, nothing written: silent
	p.update(5, false, 0, 0)   // still 0%
	p.update(10, false, 0, 0)  // 1%
	p.update(12, false, 0, 0)  // still 1%
	p.update(15, true, 1, 100) // written: always reported
	p.update(500, true, 2, 2048)
	p.finish()

	lines := strings.Split(strings.TrimPrefix(buf.String(), "\r"), "\r")
	assert.Equal(t, []string{
		"Progress: 1%\tCopied 0 messages (0 bytes, 0B)",
		"Progress: 1%\tCopied 1 messages (100 bytes, 100B)",
		"Progress: 50%\tCopied 2 messages (2048 bytes, 2K)\n",
	}, lines)
}

func TestProgress_Disabled(t *testing.T) {
	p := newProgress(nil, 10)
	p.update(5, true, 1, 1)
	p.finish()

	var buf bytes.Buffer
	quiet := newProgress(&buf, 10)
	quiet.finish()
	assert.Empty(t, buf.String(), "no trailing newline without a progress line")
}
