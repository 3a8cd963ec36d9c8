package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/db"
	"github.com/hpungsan/fbz/internal/logging"
	"github.com/hpungsan/fbz/internal/mcp"
	"github.com/hpungsan/fbz/internal/startup"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"open": true, "save": true, "info": true, "convert": true,
	"recent": true, "forget": true, "serve": true, "ui": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   __ _
  / _| |__ ____
 | |_| '_ \_  /
 |  _| |_) / /
 |_| |_.__/___|

  FictionBook document editor backend

  Usage: fbz <command> [options]
         fbz --help

  MCP server mode requires piped input: fbz [path] < pipe`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before touching the base dir
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(&appDeps{logger: logging.Discard()})
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fatal("%v", err)
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		fatal("could not create %s: %v", baseDir, err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	logger, logCloser := logging.New(os.Stderr, baseDir, cfg.LogLevel)
	defer logCloser.Close()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	// Opening and saving work without the recent list
	database, err := db.Init(baseDir)
	if err != nil {
		logger.Warn("recent documents unavailable", "error", err)
		database = nil
	} else {
		db.ConfigurePool(database, cfg)
		defer database.Close()
	}

	deps := &appDeps{db: database, cfg: cfg, logger: logger, baseDir: baseDir}

	if isCLIMode(os.Args) {
		app := newCLIApp(deps)
		if err := app.Run(os.Args); err != nil {
			exit(logCloser, err)
		}
		return
	}

	// A lone argument on a terminal is most likely a typo'd command
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'fbz --help' for usage.\n")
		exit(logCloser, nil)
	}

	// MCP server mode: the optional argument is the launch document
	if err := runMCP(deps, startup.FromArgs(os.Args[1:])); err != nil {
		logger.Error("mcp server stopped", "error", err)
		exit(logCloser, err)
	}
}

func runMCP(deps *appDeps, cell *startup.Cell) error {
	deps.logger.Info("starting mcp server", "version", Version, "launch_pending", cell.Pending())
	return mcp.Run(deps.db, deps.cfg, cell, deps.logger, Version)
}

// exit flushes the log file before exiting, since deferred calls do not run.
func exit(logCloser io.Closer, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	_ = logCloser.Close()
	os.Exit(1)
}
