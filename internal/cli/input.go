package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// EnvPassphrase names the environment variable that supplies the vault
// passphrase non-interactively.
const EnvPassphrase = "XJOURNAL_PASSPHRASE"

var ErrEmptyPassphrase = errors.New("empty passphrase")

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// getPassphrase returns the vault passphrase from XJOURNAL_PASSPHRASE or,
// when unset, from the terminal without echo. The caller wipes the result.
func getPassphrase(w io.Writer) ([]byte, error) {
	if p := os.Getenv(EnvPassphrase); p != "" {
		return []byte(p), nil
	}

	if _, err := fmt.Fprint(w, "Vault passphrase: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, ErrEmptyPassphrase
	}
	return pw, nil
}

// getMultiline prints a prompt to w and reads lines until an empty line or
// EOF. The lines are joined with '\n'.
func getMultiline(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n(press Enter on an empty line to finish)\n"); err != nil {
		return "", err
	}

	var lines []string
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" && (err == nil || errors.Is(err, io.EOF)) {
			break
		}
		lines = append(lines, line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
