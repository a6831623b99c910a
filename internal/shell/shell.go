// Package shell is the interactive terminal front end.
//
// The shell reads one command per line and drives an app.App. Forms
// (add/edit customer, new entry) open the matching overlay first, so the
// back command closes a half-filled form before leaving a customer.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/khata/internal/app"
	"github.com/roach88/khata/internal/ledger"
	"github.com/roach88/khata/internal/nav"
	"github.com/roach88/khata/internal/reconcile"
)

// MaxUnlockAttempts bounds PIN prompts before the shell gives up.
const MaxUnlockAttempts = 3

// ErrTooManyAttempts ends the session after repeated wrong PINs.
var ErrTooManyAttempts = errors.New("too many incorrect PIN attempts")

// SecretReader reads a line without echo.
type SecretReader func(prompt string) (string, error)

// Shell is one interactive session.
type Shell struct {
	app     *app.App
	in      *bufio.Scanner
	out     io.Writer
	secret  SecretReader
	palette Palette

	term string
	// rows maps the numbers of the last listing to ids.
	rows []string
}

// Option configures a Shell.
type Option func(*Shell)

// WithSecretReader sets how the PIN is read. By default it is read from the
// input like any other line.
func WithSecretReader(r SecretReader) Option {
	return func(s *Shell) { s.secret = r }
}

// WithPalette sets the balance colors.
func WithPalette(p Palette) Option {
	return func(s *Shell) { s.palette = p }
}

// New creates a shell over a.
func New(a *app.App, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		app: a,
		in:  bufio.NewScanner(in),
		out: out,
	}
	s.secret = func(prompt string) (string, error) {
		line, ok := s.ask(prompt)
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run unlocks the session if needed and processes commands until quit, end
// of input, or a back signal at Home.
func (s *Shell) Run(ctx context.Context) error {
	if !s.app.IsUnlocked() {
		if err := s.unlock(ctx); err != nil {
			return err
		}
	}
	if err := s.app.Start(ctx); err != nil {
		s.report(err)
	}
	s.render()

	for {
		line, ok := s.ask(s.prompt())
		if !ok {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		quit, err := s.dispatch(ctx, line)
		if err != nil {
			s.report(err)
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Shell) unlock(ctx context.Context) error {
	for attempt := 1; attempt <= MaxUnlockAttempts; attempt++ {
		pin, err := s.secret("PIN: ")
		if err != nil {
			return err
		}
		err = s.app.Unlock(ctx, pin)
		if err == nil {
			return nil
		}
		s.report(err)
		if !ledger.IsValidation(err) {
			return err
		}
	}
	return ErrTooManyAttempts
}

func (s *Shell) prompt() string {
	st := s.app.State()
	where := "khata"
	if st.Screen == nav.Detail {
		if c, err := s.app.Ledger().Customer(st.CustomerID); err == nil {
			where += "/" + c.Name
		}
	}
	return where + "> "
}

// ask prints prompt and reads one trimmed line. ok is false at end of
// input.
func (s *Shell) ask(prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// confirm asks a yes/no question. Anything but y/yes is no.
func (s *Shell) confirm(p reconcile.DeletionPrompt) bool {
	answer, ok := s.ask(p.Question + " [y/N] ")
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func (s *Shell) report(err error) {
	var le *ledger.Error
	if errors.As(err, &le) {
		fmt.Fprintf(s.out, "Error [%s]: %s\n", le.Code, le.Message)
		return
	}
	slog.Debug("shell command failed", "error", err)
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

// render shows the current screen.
func (s *Shell) render() {
	st := s.app.State()
	if st.Screen == nav.Detail {
		v, err := s.app.Detail()
		if err != nil {
			s.report(err)
			return
		}
		s.rows = RenderDetail(s.out, v, s.palette)
		return
	}
	v, err := s.app.Home(s.term)
	if err != nil {
		s.report(err)
		return
	}
	s.rows = RenderHome(s.out, v, s.palette)
}

// pick resolves a row number from the last listing, or passes an id through.
func (s *Shell) pick(arg string) (string, error) {
	if arg == "" {
		return "", ledger.Validation("pick", "which one? give a number from the list")
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	if n < 1 || n > len(s.rows) {
		return "", ledger.Validation("pick", fmt.Sprintf("no row %d", n))
	}
	return s.rows[n-1], nil
}

const helpText = `Home:
  ls                     list customers
  search [term]          filter by name (no term clears)
  open <n>               open customer n
  add                    add a customer
Customer:
  gave <amount> [note]   you gave goods or money
  got <amount> [note]    you received a payment
  rm <n>                 delete entry n
  edit                   edit this customer
  delete                 delete this customer and all entries
Anywhere:
  back                   close the form, or leave the customer, or quit
  home                   go to the customer list
  refresh                reload from the server
  lock                   lock and ask for the PIN again
  quit                   leave`

// dispatch runs one command line. quit is true when the session should end.
func (s *Shell) dispatch(ctx context.Context, line string) (quit bool, err error) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	st := s.app.State()

	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
		return false, nil
	case "quit", "exit":
		return true, nil

	case "ls", "list":
		s.render()
		return false, nil

	case "search":
		s.term = rest
		if st.Screen != nav.Home {
			if err := s.app.GoHome(); err != nil {
				return false, err
			}
		}
		s.render()
		return false, nil

	case "open":
		if st.Screen != nav.Home {
			return false, ledger.Navigation("open", "go home first")
		}
		id, err := s.pick(rest)
		if err != nil {
			return false, err
		}
		if err := s.app.OpenCustomer(ctx, id); err != nil {
			return false, err
		}
		s.render()
		return false, nil

	case "add":
		return false, s.customerForm(ctx, "")

	case "edit":
		if st.Screen != nav.Detail {
			return false, ledger.Navigation("edit", "open a customer first")
		}
		return false, s.customerForm(ctx, st.CustomerID)

	case "gave", "got":
		if st.Screen != nav.Detail {
			return false, ledger.Navigation(cmd, "open a customer first")
		}
		kind := ledger.Gave
		if cmd == "got" {
			kind = ledger.Received
		}
		amount, note, _ := strings.Cut(rest, " ")
		return false, s.entryForm(ctx, st.CustomerID, kind, amount, strings.TrimSpace(note))

	case "rm":
		if st.Screen != nav.Detail {
			return false, ledger.Navigation("rm", "open a customer first")
		}
		id, err := s.pick(rest)
		if err != nil {
			return false, err
		}
		done, err := s.app.DeleteTransaction(ctx, id, st.CustomerID, s.confirm)
		if err != nil {
			return false, err
		}
		if done {
			fmt.Fprintln(s.out, "Deleted.")
		}
		s.render()
		return false, nil

	case "delete":
		if st.Screen != nav.Detail {
			return false, ledger.Navigation("delete", "open a customer first")
		}
		done, err := s.app.DeleteCustomer(ctx, st.CustomerID, s.confirm)
		if err != nil {
			return false, err
		}
		if done {
			fmt.Fprintln(s.out, "Deleted.")
		}
		s.render()
		return false, nil

	case "back":
		if s.app.Back() == nav.Exit {
			return true, nil
		}
		s.render()
		return false, nil

	case "home":
		if err := s.app.GoHome(); err != nil {
			return false, err
		}
		s.render()
		return false, nil

	case "refresh":
		if err := s.app.Refresh(ctx); err != nil {
			return false, err
		}
		s.render()
		return false, nil

	case "lock":
		s.app.Lock()
		fmt.Fprintln(s.out, "Locked.")
		if err := s.unlock(ctx); err != nil {
			return true, err
		}
		if err := s.app.Start(ctx); err != nil {
			return false, err
		}
		s.render()
		return false, nil

	default:
		return false, ledger.Validation("command", fmt.Sprintf("unknown command %q (try help)", cmd))
	}
}
