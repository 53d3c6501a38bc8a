package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/feedlog/internal/offsetlog"
	"github.com/rmacdonaldsmith/feedlog/internal/ssbtest"
	offsetlogpkg "github.com/rmacdonaldsmith/feedlog/pkg/offsetlog"
)

// padding is a zero-filled entry as left behind by deletions.
var padding = make([]byte, 16)

// writeLog creates a log holding payloads and returns its path.
func writeLog(t *testing.T, payloads ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.log")

	w, err := offsetlog.Create(path, offsetlog.Options{})
	require.NoError(t, err)
	for _, p := range payloads {
		_, err := w.Append(p)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

// readPayloads returns every payload of the log at path, in log order.
func readPayloads(t *testing.T, path string) [][]byte {
	t.Helper()
	l, err := offsetlog.OpenReadOnly(path)
	require.NoError(t, err)
	defer l.Close()

	var out [][]byte
	err = offsetlog.Scan(context.Background(), l, func(e offsetlogpkg.Entry) error {
		out = append(out, e.Data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func raws(msgs ...ssbtest.Message) [][]byte {
	out := make([][]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.Raw
	}
	return out
}

func newTestRunner() *Runner {
	return NewRunner(zap.NewNop())
}

// twoFeeds is a log of two interleaved, valid feeds.
type twoFeeds struct {
	alice, bob *ssbtest.Feed
	a, b       []ssbtest.Message
	all        [][]byte // log order, no padding
}

func newTwoFeeds() twoFeeds {
	f := twoFeeds{alice: ssbtest.NewFeed(1), bob: ssbtest.NewFeed(2)}
	for i := 0; i < 3; i++ {
		a := f.alice.Publish("alice", float64(10*i+1))
		f.a = append(f.a, a)
		f.all = append(f.all, a.Raw)
		if i < 2 {
			b := f.bob.Publish("bob", float64(10*i+5))
			f.b = append(f.b, b)
			f.all = append(f.all, b.Raw)
		}
	}
	return f
}

// tempFiles lists leftover temporary destinations in dir.
func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	require.NoError(t, err)
	return matches
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
