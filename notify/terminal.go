package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/bazrganidrwst/warehouse-client/internal/ui"
)

var typeColors = map[Type]string{
	Positive: ui.GreenInverse,
	Negative: ui.RedInverse,
	Warning:  ui.YellowInverse,
	Info:     ui.BlueInverse,
}

// Terminal prints notifications as coloured one-liners.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
}

func NewTerminal(out io.Writer, plain bool) *Terminal {
	return &Terminal{out: out, plain: plain}
}

func (t *Terminal) Notify(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	label := fmt.Sprintf(" %-8s ", n.Type)
	fmt.Fprintf(t.out, "%s %s\n", ui.Colorize(typeColors[n.Type], label, t.plain), n.Message)
}
