package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/db"
	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/logging"
	"github.com/hpungsan/fbz/internal/ops"
	"github.com/hpungsan/fbz/internal/startup"
	"github.com/hpungsan/fbz/internal/web"
)

// appDeps carries what commands need. db may be nil when the recent list is
// unavailable.
type appDeps struct {
	db      *sql.DB
	cfg     *config.Config
	logger  *slog.Logger
	baseDir string
}

func (d *appDeps) ctx(c *cli.Context) context.Context {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, d.logger)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *appDeps) *cli.App {
	app := &cli.App{
		Name:    "fbz",
		Usage:   "FictionBook (.fb2, .fbz, .fb2.zip) document backend",
		Version: Version,
		Commands: []*cli.Command{
			openCmd(d),
			saveCmd(d),
			infoCmd(d),
			convertCmd(d),
			recentCmd(d),
			forgetCmd(d),
			serveCmd(d),
			uiCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// openCmd creates the open command.
func openCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Print a document's content (unpacking archives)",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "text", Aliases: []string{"t"}, Usage: "Decode to UTF-8 using the document's declared encoding"},
			&cli.BoolFlag{Name: "json", Usage: "Print metadata and base64 content as JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.OpenFile(d.ctx(c), d.db, d.cfg, ops.OpenFileInput{
				Path:       c.Args().First(),
				DecodeText: c.Bool("text"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(output)
			}
			if output.Text != nil {
				_, err = io.WriteString(os.Stdout, *output.Text)
			} else {
				_, err = os.Stdout.Write(output.Content)
			}
			return err
		},
	}
}

// saveCmd creates the save command.
func saveCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save a document (reads content from stdin)",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}

			content, err := readStdin()
			if err != nil {
				return outputError(errors.NewIOFailure("read stdin", err))
			}

			output, err := ops.SaveFile(d.ctx(c), d.db, d.cfg, ops.SaveFileInput{
				Path:    c.Args().First(),
				Content: content,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// infoCmd creates the info command.
func infoCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show format, size, hash and encoding of a document",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			output, err := ops.Inspect(d.ctx(c), d.cfg, ops.InspectInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// convertCmd creates the convert command.
func convertCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Copy a document into another container, e.g. .fb2 to .fbz",
		ArgsUsage: "<source> <destination>",
		Action: func(c *cli.Context) error {
			output, err := ops.Convert(d.ctx(c), d.db, d.cfg, ops.ConvertInput{
				Source:      c.Args().Get(0),
				Destination: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// recentCmd creates the recent command.
func recentCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List recently opened or saved documents",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of documents"},
			&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Recent(d.ctx(c), d.db, d.cfg, ops.RecentInput{Limit: c.Int("limit")})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") || !stdoutIsTerminal() {
				return outputJSON(output)
			}
			if len(output.Items) == 0 {
				fmt.Println("No recent documents.")
				return nil
			}
			fmt.Println(renderRecentTable(output.Items, time.Now()))
			return nil
		},
	}
}

// forgetCmd creates the forget command.
func forgetCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "Remove a document from the recent list (the file is kept)",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			output, err := ops.Forget(d.ctx(c), d.db, ops.ForgetInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Run the MCP server on stdio",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			return runMCP(d, startup.New(c.Args().First()))
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(d *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "ui",
		Usage:     "Run the local HTTP bridge for the editor frontend",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8722, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			lock, err := web.AcquireLock(d.baseDir)
			if err != nil {
				return outputError(err)
			}
			defer lock.Unlock()

			srv, err := web.NewServer(d.db, d.cfg, startup.New(c.Args().First()), web.Options{
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				Version: Version,
				Logger:  d.logger,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, d.logger)
		},
	}
}

// outputJSON prints JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	fErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	return !isTerminal()
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// readStdin reads all content from stdin. The content is kept byte for byte.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// renderRecentTable formats recent documents for the terminal.
func renderRecentTable(items []db.Document, now time.Time) string {
	rows := make([][]string, 0, len(items))
	for _, d := range items {
		rows = append(rows, []string{
			d.Path,
			d.Format,
			humanize.IBytes(uint64(d.Size)),
			humanize.RelTime(time.Unix(d.UpdatedAt, 0), now, "ago", "from now"),
		})
	}
	return renderTable(
		[]string{"Document", "Format", "Size", "Last used"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}
