package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/parcelsuggest/suggest"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// Terminals narrower than this are treated like a phone screen.
const narrowWidth = 60

const maxShownSuggestions = 10

func interactiveCommand(c *cli.Context) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("interactive mode needs a terminal")
	}

	engine, cfg, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	mobile := cfg.Suggest.Mobile || c.Bool("mobile")
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width < narrowWidth {
		mobile = true
	}

	ctrl, err := engine.NewController(controllerOptions(cfg, mobile)...)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	view := &promptView{w: os.Stdout, limit: maxShownSuggestions}
	unsubscribe := ctrl.Subscribe(view.render)
	defer unsubscribe()

	ctrl.Focus()
	engine.EnsureLoaded()
	view.render(ctrl.Snapshot())

	return readQuery(bufio.NewReader(os.Stdin), ctrl)
}

// queryInput is the part of a controller the key loop drives.
type queryInput interface {
	SetQuery(value string)
	Clear()
}

// readQuery edits a query from raw keystrokes until Esc, Ctrl-C, Ctrl-D or
// the end of input.
func readQuery(reader *bufio.Reader, ctrl queryInput) error {
	var query []rune
	for {
		r, _, err := reader.ReadRune()
		if err != nil {
			return nil
		}

		switch r {
		case 3, 4: // Ctrl-C, Ctrl-D
			fmt.Print("\r\n")
			return nil
		case 27: // Esc or an escape sequence
			if reader.Buffered() == 0 {
				fmt.Print("\r\n")
				return nil
			}
			skipEscapeSequence(reader)
			continue
		case 21: // Ctrl-U
			query = query[:0]
			ctrl.Clear()
			continue
		case 8, 127: // Backspace
			if len(query) == 0 {
				continue
			}
			query = query[:len(query)-1]
		default:
			if !unicode.IsPrint(r) {
				continue
			}
			query = append(query, r)
		}
		ctrl.SetQuery(string(query))
	}
}

// skipEscapeSequence consumes the rest of a CSI or SS3 sequence such as an arrow key.
func skipEscapeSequence(reader *bufio.Reader) {
	b, err := reader.ReadByte()
	if err != nil || (b != '[' && b != 'O') {
		return
	}
	for reader.Buffered() > 0 {
		b, err = reader.ReadByte()
		if err != nil || (b >= 0x40 && b <= 0x7e) {
			return
		}
	}
}

// promptView redraws the prompt and suggestions for each snapshot.
type promptView struct {
	w     io.Writer
	limit int

	mu sync.Mutex
}

func (v *promptView) render(s suggest.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	fmt.Fprintf(&b, "> %s\r\n", s.Query)

	switch {
	case s.Error != "":
		fmt.Fprintf(&b, "  (%s)\r\n", s.Error)
	case s.IsLoading:
		b.WriteString("  loading...\r\n")
	case s.State == suggest.StateSettled && len(s.Suggestions) == 0:
		b.WriteString("  no suggestions\r\n")
	}

	for i, sug := range s.Suggestions {
		if i == v.limit {
			fmt.Fprintf(&b, "  ... %d more\r\n", len(s.Suggestions)-v.limit)
			break
		}
		fmt.Fprintf(&b, "  %s  %s\r\n", sug.FullAddress, sug.ParcelID)
	}
	b.WriteString("\r\n(type to search, Ctrl-U to clear, Esc to quit)")

	// Park the cursor after the query
	fmt.Fprintf(&b, "\033[1;%dH", utf8.RuneCountInString(s.Query)+3)

	io.WriteString(v.w, b.String())
}
