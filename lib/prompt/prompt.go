// Package prompt asks the user for their EID and password.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	EIDEnv      = "UTPRINT_EID"
	PasswordEnv = "UTPRINT_PASSWORD"
)

// ErrUnavailable is returned by a source that has no credentials to give,
// a Chain moves on to its next source.
var ErrUnavailable = errors.New("credentials unavailable")

type Source interface {
	Credentials(ctx context.Context) (eid, password string, err error)
}

// Terminal reads credentials interactively, the password is not echoed
// when In is a terminal.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{In: in, Out: out}
}

func (t *Terminal) readLine() (string, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) terminalFd() (int, bool) {
	file, ok := t.In.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(file.Fd())
	return fd, term.IsTerminal(fd)
}

func (t *Terminal) readPassword() (string, error) {
	fd, ok := t.terminalFd()
	if !ok {
		return t.readLine()
	}
	password, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func (t *Terminal) Credentials(ctx context.Context) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	fmt.Fprintln(t.Out)
	fmt.Fprint(t.Out, "EID: ")
	eid, err := t.readLine()
	if err != nil {
		return "", "", fmt.Errorf("read eid: %w", err)
	}
	fmt.Fprint(t.Out, "Password: ")
	password, err := t.readPassword()
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(t.Out)

	eid = strings.TrimSpace(eid)
	if eid == "" {
		return "", "", errors.New("no eid given")
	}
	return eid, password, nil
}

// Env reads credentials from UTPRINT_EID and UTPRINT_PASSWORD.
type Env struct {
	// defaults to os.LookupEnv
	Lookup func(key string) (string, bool)
}

func (e Env) Credentials(ctx context.Context) (string, string, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	eid, ok := lookup(EIDEnv)
	if !ok || eid == "" {
		return "", "", ErrUnavailable
	}
	password, ok := lookup(PasswordEnv)
	if !ok {
		return "", "", ErrUnavailable
	}
	return eid, password, nil
}

// Chain asks each source in order until one has credentials.
type Chain []Source

func (c Chain) Credentials(ctx context.Context) (string, string, error) {
	for _, source := range c {
		eid, password, err := source.Credentials(ctx)
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		return eid, password, err
	}
	return "", "", ErrUnavailable
}
