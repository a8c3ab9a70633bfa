// Package cli implements the operator commands: exporting the directory to
// a local JSON file and importing a replacement data set.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/reseauechanges/annuaire/internal/client/config"
	"github.com/reseauechanges/annuaire/internal/common"
)

type App struct {
	config *config.Config
	client *http.Client
	out    io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		client: &http.Client{Timeout: c.RequestTimeout},
		out:    os.Stdout,
	}
}

// Run dispatches the subcommand found on the command line.
func (a *App) Run(ctx context.Context) error {
	cmd, path := command(os.Args[1:])
	switch cmd {
	case "export":
		return a.Export(ctx, path)
	case "import":
		return a.Import(ctx, path)
	default:
		return fmt.Errorf("usage: annuaire-cli [-a url] export|import <file.json>")
	}
}

// Export fetches every entry and writes the server response to path.
func (a *App) Export(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("export: missing output file")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.ServerURL+"/entries", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching entries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching entries: server replied %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return fmt.Errorf("decoding server response: %w", err)
	}

	if err := os.WriteFile(path, pretty.Bytes(), 0o600); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "exported to %s\n", path)
	return nil
}

// Import reads a JSON file (either {"entries":[...]} or a bare array) and
// replaces the server's data set with it.
func (a *App) Import(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("import: missing input file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("import: %s is not valid JSON", path)
	}

	token := a.config.AdminToken
	if token == "" {
		token, err = GetAdminToken(a.out)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.ServerURL+"/entries?overwrite=1", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.AdminTokenHeaderName, token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("importing entries: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("importing entries: server replied %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var ack struct {
		Replaced int `json:"replaced"`
	}
	_ = json.Unmarshal(body, &ack)

	fmt.Fprintf(a.out, "imported %s, %d entries stored\n", path, ack.Replaced)
	return nil
}

// command finds the subcommand and its file argument among the raw args,
// skipping over flags and their values.
func command(args []string) (string, string) {
	for i, arg := range args {
		if arg == "export" || arg == "import" {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				return arg, args[i+1]
			}
			return arg, ""
		}
	}
	return "", ""
}
