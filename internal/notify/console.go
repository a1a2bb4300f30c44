package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ConsoleSink prints deliveries to a local writer. It stands in for a
// platform adapter during development and when no gateway is
// configured.
type ConsoleSink struct {
	out    io.Writer
	pretty bool
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	pretty := false
	if f, ok := out.(*os.File); ok {
		pretty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &ConsoleSink{out: out, pretty: pretty}
}

func (s *ConsoleSink) Deliver(_ context.Context, userID, content string, controls *Controls) error {
	var b strings.Builder
	if s.pretty {
		b.WriteString("📨 ")
	}
	fmt.Fprintf(&b, "to %s: %s", userID, content)
	if controls != nil {
		fmt.Fprintf(&b, "\n[offer %s: accept | decline]", controls.OfferID)
	}

	_, err := fmt.Fprintln(s.out, b.String())
	return err
}
