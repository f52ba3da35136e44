package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/nao1215/osmsandbox/internal/model"
)

// Prompter asks questions on the controlling terminal.
type Prompter struct {
	// in is the input stream, normally os.Stdin.
	in io.Reader

	// reader buffers in. A single buffered reader survives across prompts
	// so piped input is not lost between questions.
	reader *bufio.Reader

	// out is the output stream for the prompt text, normally os.Stderr so
	// prompts stay visible when report output is redirected.
	out io.Writer

	// readPassword reads a secret without echo. It is a field so tests can
	// substitute a plain reader; the default uses the terminal when one is
	// attached.
	readPassword func() (string, error)
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithInput sets the input stream.
func WithInput(in io.Reader) Option {
	return func(p *Prompter) {
		p.in = in
	}
}

// WithOutput sets the output stream for prompt text.
func WithOutput(out io.Writer) Option {
	return func(p *Prompter) {
		p.out = out
	}
}

// NewPrompter creates a Prompter bound to stdin and stderr.
func NewPrompter(opts ...Option) *Prompter {
	p := &Prompter{
		in:  os.Stdin,
		out: os.Stderr,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.reader = bufio.NewReader(p.in)
	if p.readPassword == nil {
		p.readPassword = p.defaultReadPassword
	}

	return p
}

// Credentials asks for the sandbox login and password. An empty login means
// the user wants out; it returns ErrCanceled so the caller can abort without
// treating it as a failure.
func (p *Prompter) Credentials() (model.Credentials, error) {
	fmt.Fprint(p.out, "Sandbox login (empty to abort): ")
	login, err := p.readLine()
	if err != nil {
		// Closed input (Ctrl-D, empty pipe) means the same thing as an
		// empty login: the user wants out.
		if errors.Is(err, io.EOF) {
			return model.Credentials{}, ErrCanceled
		}
		return model.Credentials{}, fmt.Errorf("read login: %w", err)
	}
	login = strings.TrimSpace(login)
	if login == "" {
		return model.Credentials{}, ErrCanceled
	}

	fmt.Fprint(p.out, "Password: ")
	password, err := p.readPassword()
	if err != nil {
		return model.Credentials{}, fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(p.out)

	return model.Credentials{Username: login, Password: password}, nil
}

// Confirm asks a yes/no question and returns nil when the user answers yes.
// Any other answer returns ErrCanceled.
func (p *Prompter) Confirm(question string) error {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	answer, err := p.readLine()
	if err != nil {
		// No answer defaults to no, and so does closed input.
		if errors.Is(err, io.EOF) {
			return ErrCanceled
		}
		return fmt.Errorf("read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return ErrCanceled
	}
}

// readLine reads a single line from the input stream.
func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// defaultReadPassword reads the password without echo when standard input
// is a terminal. Without a terminal it falls back to a plain line read so
// the tool still works under a pipe.
func (p *Prompter) defaultReadPassword() (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return p.readLine()
}
