package report

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/donaldgifford/speclint/internal/config"
)

// ColorEnabled resolves a colour mode for output written to w. In auto
// mode colour is used only for terminals, and never when NO_COLOR is set.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
