// Package commands implements the orchestrator's subcommands.
package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"matrix_orchestrator/internal/service"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const HashPasswordName = "hash-password"

var (
	errEmptyUsername    = errors.New("username cannot be empty")
	errEmptyPassword    = errors.New("password cannot be empty")
	errPasswordMismatch = errors.New("passwords do not match")
)

// prompter is the terminal the subcommand talks to.
type prompter struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func() (string, error)
}

func newTerminalPrompter() *prompter {
	in := bufio.NewReader(os.Stdin)
	p := &prompter{in: in, out: os.Stderr}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.readPassword = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.out)
			return string(b), err
		}
	} else {
		p.readPassword = p.readLine
	}
	return p
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// HashPassword handles the hash-password subcommand and returns the exit code.
// The config snippet goes to stdout, prompts to stderr.
func HashPassword(args []string) int {
	if err := runHashPassword(args, newTerminalPrompter(), os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runHashPassword(args []string, p *prompter, stdout io.Writer) error {
	fs := pflag.NewFlagSet(HashPasswordName, pflag.ContinueOnError)
	fs.SetOutput(p.out)
	username := fs.StringP("username", "u", "", "operator username (prompted if empty)")
	fs.Usage = func() {
		fmt.Fprintf(p.out, "Usage: orchestrator %s [OPTIONS]\n\n", HashPasswordName)
		fmt.Fprintf(p.out, "Prints an auth.operators entry with a bcrypt password hash.\n\n")
		fmt.Fprintf(p.out, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	name := strings.TrimSpace(*username)
	if name == "" {
		fmt.Fprint(p.out, "Enter username: ")
		line, err := p.readLine()
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		name = strings.TrimSpace(line)
	}
	if name == "" {
		return errEmptyUsername
	}

	fmt.Fprint(p.out, "Enter password:   ")
	password, err := p.readPassword()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return errEmptyPassword
	}
	fmt.Fprint(p.out, "Confirm password: ")
	confirm, err := p.readPassword()
	if err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirm {
		return errPasswordMismatch
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "auth:\n  operators:\n    - username: %q\n      password_hash: %q\n", name, hash)
	return nil
}
