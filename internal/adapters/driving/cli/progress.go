package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
)

var stageTitles = map[string]string{
	"acquire": "Acquiring",
	"chunk":   "Chunking",
	"load":    "Loading",
	"ingest":  "Ingesting",
}

// stageBars draws one progress bar per ingestion stage.
type stageBars struct {
	mu    sync.Mutex
	w     io.Writer
	stage string
	bar   *progressbar.ProgressBar
}

// trackProgress installs a progress bar on svc when w is a terminal and
// verbose logging is off. The returned func finishes the last bar and
// removes the callback.
func trackProgress(svc driving.IngestionService, w io.Writer) func() {
	if verbose || !isTerminal(w) {
		return func() {}
	}
	bars := &stageBars{w: w}
	svc.SetProgress(bars.update)
	return func() {
		svc.SetProgress(nil)
		bars.mu.Lock()
		defer bars.mu.Unlock()
		bars.finish()
	}
}

func (b *stageBars) update(stage string, done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if total <= 0 {
		return
	}
	if b.bar == nil || stage != b.stage {
		b.finish()
		b.stage = stage
		b.bar = newStageBar(b.w, stage, total)
	}
	_ = b.bar.Set(done)
}

func (b *stageBars) finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
		b.bar = nil
	}
}

func newStageBar(w io.Writer, stage string, total int) *progressbar.ProgressBar {
	title, ok := stageTitles[stage]
	if !ok {
		title = stage
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%-10s[reset]", title)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}
