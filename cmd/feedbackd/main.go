// ABOUTME: Entry point for feedbackd, the feedback collection server
// ABOUTME: Dispatches the serve, init, hash-password, export and health subcommands

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/feedbackd/internal/auth"
	"github.com/2389/feedbackd/internal/config"
	"github.com/2389/feedbackd/internal/export"
	"github.com/2389/feedbackd/internal/server"
	"github.com/2389/feedbackd/internal/store"
)

// version is set at build time via -ldflags.
var version = "dev"

const banner = `
  __              _ _                _       _
 / _| ___  ___  __| | |__   __ _  ___| | ____| |
| |_ / _ \/ _ \/ _' | '_ \ / _' |/ __| |/ / _' |
|  _|  __/  __/ (_| | |_) | (_| | (__|   < (_| |
|_|  \___|\___|\__,_|_.__/ \__,_|\___|_|\_\__,_|
`

const usage = `Usage: feedbackd <command> [flags]

Commands:
  serve           Start the feedback server
  init            Write a starter config with a fresh session secret
  hash-password   Print a bcrypt hash for admin.password_hash
  export          Write all feedback to a timestamped JSON file
  health          Check server health

Every command accepts --config PATH (default: $FEEDBACKD_CONFIG or
$XDG_CONFIG_HOME/feedbackd/config.yaml).
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, stdin io.Reader, stdout io.Writer) error {
	switch command {
	case "serve":
		return runServe(ctx, args)
	case "init":
		return runInit(args, stdin, stdout)
	case "hash-password":
		return runHashPassword(args, stdin, stdout)
	case "export":
		return runExport(ctx, args, stdout)
	case "health":
		return runHealth(ctx, args, stdout)
	case "help", "-h", "--help":
		_, _ = fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// newFlagSet returns a flag set with the shared --config flag bound to configPath.
func newFlagSet(name string, configPath *string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVarP(configPath, "config", "c", config.DefaultPath(), "path to config file")
	return flagSet
}

func runServe(ctx context.Context, args []string) error {
	var configPath string
	flagSet := newFlagSet("serve", &configPath)
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Sessions:  %s", cfg.Session.Backend)
	if cfg.Session.Backend == config.SessionBackendRedis {
		gray.Printf(" (%s)", cfg.Session.Redis.Addr)
	}
	fmt.Println()
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	if !cfg.Session.SecureCookie {
		yellow.Println("    ! session.secure_cookie is off; enable it behind HTTPS")
	}
	fmt.Println()

	logger.Info("starting feedbackd",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"session_backend", cfg.Session.Backend,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runInit(args []string, stdin io.Reader, stdout io.Writer) error {
	var configPath, password string
	var force bool
	flagSet := newFlagSet("init", &configPath)
	flagSet.StringVar(&password, "password", "", "admin password (prompted when omitted)")
	flagSet.BoolVar(&force, "force", false, "overwrite an existing config file")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if password == "" {
		var err error
		password, err = readPassword(stdin, stdout)
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	secret, err := auth.GenerateToken(32)
	if err != nil {
		return fmt.Errorf("generating session secret: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file holds the session secret.
	if err := os.WriteFile(configPath, []byte(config.Starter(secret, hash)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	_, _ = green.Fprintf(stdout, "  ✓ Created config: %s\n", configPath)
	_, _ = fmt.Fprintln(stdout, "\nTo start the server:")
	_, _ = fmt.Fprintf(stdout, "  feedbackd serve --config %s\n", configPath)
	return nil
}

func runHashPassword(args []string, stdin io.Reader, stdout io.Writer) error {
	var password string
	flagSet := pflag.NewFlagSet("hash-password", pflag.ContinueOnError)
	flagSet.StringVar(&password, "password", "", "password to hash (read from stdin when omitted)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if password == "" {
		var err error
		password, err = readPassword(stdin, stdout)
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(stdout, hash)
	return nil
}

// readPassword reads a single line from stdin. The prompt goes to stdout only
// when stdin is a terminal so piped use prints just the result.
func readPassword(stdin io.Reader, stdout io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			_, _ = fmt.Fprintf(stdout, "Admin password (min %d characters): ", auth.MinPasswordLength)
		}
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	var configPath, dir string
	flagSet := newFlagSet("export", &configPath)
	flagSet.StringVar(&dir, "dir", "", "output directory (default: export.dir from config)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dir == "" {
		dir = cfg.Export.Dir
	}

	// Open the store directly
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	path, n, err := export.ToFile(ctx, s, dir, time.Now())
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	_, _ = green.Fprintf(stdout, "  ✓ Exported %d entries to %s\n", n, path)
	return nil
}

func runHealth(ctx context.Context, args []string, stdout io.Writer) error {
	var configPath string
	var ready bool
	flagSet := newFlagSet("health", &configPath)
	flagSet.BoolVar(&ready, "ready", false, "check readiness (storage reachable) instead of liveness")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := "/health"
	if ready {
		path = "/health/ready"
	}

	// Make HTTP request to health endpoint with context
	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	_, _ = fmt.Fprintln(stdout, "healthy")
	return nil
}
