// Package console handles line-oriented terminal I/O.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Console reads user lines and writes styled output.
type Console struct {
	src io.Reader
	in  *bufio.Reader
	out io.Writer

	assistant *color.Color
	green     *color.Color
	yellow    *color.Color
	red       *color.Color
	gray      *color.Color
	bold      *color.Color
}

// New creates a console over in and out.
func New(in io.Reader, out io.Writer, noColor bool) *Console {
	if noColor {
		color.NoColor = true
	}
	return &Console{
		src:       in,
		in:        bufio.NewReader(in),
		out:       out,
		assistant: color.New(color.FgCyan),
		green:     color.New(color.FgGreen),
		yellow:    color.New(color.FgYellow),
		red:       color.New(color.FgRed),
		gray:      color.New(color.FgHiBlack),
		bold:      color.New(color.Bold),
	}
}

// ReadLine prints prompt and returns the next line without its newline.
// A final unterminated line is returned with a nil error; io.EOF is only
// returned once nothing is left.
func (c *Console) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(c.out, c.bold.Sprint(prompt))
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret is ReadLine without echo when input is a terminal.
func (c *Console) ReadSecret(prompt string) (string, error) {
	f, ok := c.src.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return c.ReadLine(prompt)
	}
	fmt.Fprint(c.out, c.bold.Sprint(prompt))
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Assistant prints text spoken by the assistant.
func (c *Console) Assistant(text string) {
	fmt.Fprintln(c.out, c.assistant.Sprint("🎧 "+strings.TrimSpace(text)))
}

func (c *Console) Info(msg string) {
	fmt.Fprintln(c.out, msg)
}

func (c *Console) Success(msg string) {
	fmt.Fprintln(c.out, c.green.Sprint(msg))
}

func (c *Console) Warn(msg string) {
	fmt.Fprintln(c.out, c.yellow.Sprint(msg))
}

func (c *Console) Error(msg string) {
	fmt.Fprintln(c.out, c.red.Sprint(msg))
}

func (c *Console) Muted(msg string) {
	fmt.Fprintln(c.out, c.gray.Sprint(msg))
}

func (c *Console) Bold(s string) string {
	return c.bold.Sprint(s)
}

// Printf writes unstyled formatted output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
