package notification

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// ConsolePresenter prints notices to a terminal.
type ConsolePresenter struct {
	mu    sync.Mutex
	out   io.Writer
	title *color.Color
	tag   *color.Color
}

// NewConsolePresenter writes notices to out.
func NewConsolePresenter(out io.Writer) *ConsolePresenter {
	return &ConsolePresenter{
		out:   out,
		title: color.New(color.FgCyan, color.Bold),
		tag:   color.New(color.FgHiBlack),
	}
}

// Present writes the notice; a write failure means it was not shown.
func (c *ConsolePresenter) Present(_ context.Context, n Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.title.Fprintf(c.out, "🔔 %s\n", n.Title); err != nil {
		return err
	}
	if n.Body != "" {
		if _, err := fmt.Fprintf(c.out, "   %s\n", n.Body); err != nil {
			return err
		}
	}
	if n.Tag != "" {
		if _, err := c.tag.Fprintf(c.out, "   [%s]\n", n.Tag); err != nil {
			return err
		}
	}
	return nil
}
