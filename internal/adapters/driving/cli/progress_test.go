package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
	"github.com/custodia-labs/wikirag/internal/logger"
)

func captureLogs(t *testing.T, w io.Writer) {
	t.Helper()
	logger.SetOutput(w)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
}

// progressRecorder is an ingestion service that remembers its callback.
type progressRecorder struct {
	mockIngestionService
	fn driving.ProgressFunc
}

func (r *progressRecorder) SetProgress(fn driving.ProgressFunc) { r.fn = fn }

func TestTrackProgress_SkipsNonTerminal(t *testing.T) {
	svc := &progressRecorder{}

	done := trackProgress(svc, new(bytes.Buffer))
	done()

	assert.Nil(t, svc.fn)
}

func TestStageBars(t *testing.T) {
	buf := new(bytes.Buffer)
	bars := &stageBars{w: buf}

	bars.update("acquire", 0, 0)
	assert.Nil(t, bars.bar)

	bars.update("chunk", 1, 2)
	require.NotNil(t, bars.bar)
	first := bars.bar
	bars.update("chunk", 2, 2)
	assert.Same(t, first, bars.bar)

	bars.update("load", 1, 3)
	assert.NotSame(t, first, bars.bar)
	assert.Equal(t, "load", bars.stage)

	bars.finish()
	assert.Nil(t, bars.bar)
	assert.Contains(t, buf.String(), "Chunking")
	assert.Contains(t, buf.String(), "Loading")
}

func TestNewPalette_PlainForBuffers(t *testing.T) {
	p := newPalette(new(bytes.Buffer))

	assert.Equal(t, "Sources:", p.Subtitle.Render("Sources:"))
	assert.Equal(t, "(0.91)", p.Muted.Render("(0.91)"))
	assert.False(t, isTerminal(new(bytes.Buffer)))
}
