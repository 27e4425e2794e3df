package execute

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// progress renders a live execution indicator on interactive terminals.
// Verbose runs print one line per test instead, and non-interactive
// output gets neither.
type progress struct {
	spin *spinner.Spinner
}

func newProgress(verbose bool) *progress {
	if verbose || !term.IsTerminal(int(os.Stdout.Fd())) {
		return &progress{}
	}
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Start()
	return &progress{spin: spin}
}

func (p *progress) update(current, total int, name string) {
	if p.spin == nil {
		return
	}
	p.spin.Suffix = fmt.Sprintf(" %d/%d %s", current, total, name)
}

func (p *progress) stop() {
	if p.spin == nil {
		return
	}
	p.spin.Stop()
}
