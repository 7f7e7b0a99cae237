package dialogs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xpomul/workspacefs/internal/util"
)

// Terminal reads answers line by line from In and writes prompts to Out.
// Empty input cancels a prompt. Reaching EOF counts as cancel too
type Terminal struct {
	// AssumeYes answers every confirmation with yes without reading input
	AssumeYes bool

	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// readLine returns the next line without its terminator. ok is false at EOF
// with nothing read
func (t *Terminal) readLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	line, err := t.in.ReadString('\n')
	if errors.Is(err, io.EOF) {
		if line == "" {
			return "", false, nil
		}
		err = nil
	}
	if err != nil {
		return "", false, err
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

func (t *Terminal) Prompt(ctx context.Context, opts PromptOptions) (string, bool, error) {
	logger := util.GetLogger("Terminal.Prompt")

	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		if opts.Initial != "" {
			fmt.Fprintf(t.out, "%s [%s]: ", opts.Title, opts.Initial)
		} else {
			fmt.Fprintf(t.out, "%s: ", opts.Title)
		}
		line, ok, err := t.readLine(ctx)
		if err != nil || !ok {
			return "", false, err
		}
		if line == "" {
			logger.Debug().Str("title", opts.Title).Msg("Prompt cancelled")
			return "", false, nil
		}
		// "." accepts the suggested value
		if line == "." && opts.Initial != "" {
			line = opts.Initial
		}
		if opts.Validate != nil {
			if msg := opts.Validate(ctx, line); msg != "" {
				fmt.Fprintln(t.out, stripMarkup(msg))
				continue
			}
		}
		return line, true, nil
	}
}

func (t *Terminal) Confirm(ctx context.Context, title, message string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, title)
	if message != "" {
		fmt.Fprintln(t.out, message)
	}
	if t.AssumeYes {
		fmt.Fprintln(t.out, "Proceed? [y/N]: y")
		return true, nil
	}
	fmt.Fprint(t.out, "Proceed? [y/N]: ")
	line, ok, err := t.readLine(ctx)
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (t *Terminal) PickFolder(ctx context.Context, title string) (string, bool, error) {
	return t.Prompt(ctx, PromptOptions{Title: title})
}

// stripMarkup removes the bold markers used in validation messages
func stripMarkup(msg string) string {
	return strings.ReplaceAll(msg, "**", "")
}

var _ Dialogs = (*Terminal)(nil)
