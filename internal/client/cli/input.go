package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// GetAdminToken prints a prompt to w and reads the admin token without
// echoing it to the terminal.
func GetAdminToken(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Admin token: "); err != nil {
		return "", err
	}
	token, err := readPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	return strings.TrimSpace(string(token)), nil
}
