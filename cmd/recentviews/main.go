// ABOUTME: Entry point for the recentviews server and its admin commands
// ABOUTME: Serves per-session and per-viewer recently viewed histories over HTTP

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/recentviews/internal/api"
	"github.com/2389/recentviews/internal/auth"
	"github.com/2389/recentviews/internal/catalog"
	"github.com/2389/recentviews/internal/config"
	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/session"
	"github.com/2389/recentviews/internal/store"
)

// version is overridden with -ldflags "-X main.version=..." at build time.
var version = "dev"

const banner = `
                          _              _
 _ __ ___  ___ ___ _ __ | |_ __   _(_) _____      _____
| '__/ _ \/ __/ _ \ '_ \| __|\ \ / / |/ _ \ \ /\ / / __|
| | |  __/ (_|  __/ | | | |_  \ V /| |  __/\ V  V /\__ \
|_|  \___|\___\___|_| |_|\__|  \_/ |_|\___| \_/\_/ |___/
`

// sweepInterval is how often expired SQLite sessions are purged.
const sweepInterval = 10 * time.Minute

// getConfigPath returns the path to the config file.
// Priority: RECENTVIEWS_CONFIG env var > XDG_CONFIG_HOME/recentviews/config.yaml > ~/.config/recentviews/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("RECENTVIEWS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "recentviews", "config.yaml")
}

// getDataPath returns the path to the recentviews data directory.
// Priority: XDG_DATA_HOME/recentviews > ~/.local/share/recentviews
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "recentviews")
}

func usage() {
	fmt.Println("Usage: recentviews <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                       Start the HTTP server")
	fmt.Println("  init [--force]              Write a config file with a fresh JWT secret")
	fmt.Println("  token [--viewer ID] [--ttl] Mint a viewer token")
	fmt.Println("  seed                        Insert demo catalog items")
	fmt.Println("  health                      Check server health")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "seed":
		err = runSeed(ctx)
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s (%s)\n", cfg.Database.Path, cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Sessions:  %s\n", cfg.Session.Backend)
	green.Print("    ▶ ")
	fmt.Printf("Persist:   ")
	if cfg.Features.PersistRecentViews {
		cyan.Println("on")
	} else {
		gray.Println("off")
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Println("    ! auth.jwt_secret not set, all requests are anonymous")
	}
	fmt.Println()

	st, err := store.NewSQLiteStoreWithDriver(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()
	st.SetSessionTTL(cfg.Session.TTL)

	var sessions session.Backend
	switch cfg.Session.Backend {
	case config.BackendSQLite:
		sessions = st
		go sweepSessions(ctx, st, logger)
	default:
		mem := session.NewMemoryStore(cfg.Session.TTL, cfg.Session.MaxSessions)
		defer mem.Close()
		sessions = mem
	}

	registry := recent.NewRegistry()
	cat, err := catalog.Register(registry, st, cfg.Catalog.Limits)
	if err != nil {
		return fmt.Errorf("registering catalog: %w", err)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return fmt.Errorf("creating JWT verifier: %w", err)
		}
		verifier = v
	}

	logger.Info("starting recentviews",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"session_backend", cfg.Session.Backend,
		"persist_recent_views", cfg.Features.PersistRecentViews,
	)

	srv := api.New(api.Config{
		Addr:   cfg.Server.HTTPAddr,
		Prefix: cfg.Session.Prefix,
		Cookie: session.CookieOptions{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.CookieSecure,
		},
		Persist:  recent.NewToggle(cfg.Features.PersistRecentViews),
		Verifier: verifier,
		Logger:   logger.With("component", "api"),
	}, st, sessions, cat, registry)

	return srv.Run(ctx)
}

// sweepSessions purges expired SQLite sessions until ctx is canceled.
func sweepSessions(ctx context.Context, st *store.SQLiteStore, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := st.DeleteExpiredSessions(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("failed to sweep expired sessions", "error", err)
			}
		}
	}
}

// runInit writes a starter config with a random JWT secret.
func runInit(args []string) error {
	force := false
	for _, arg := range args {
		switch arg {
		case "--force", "-f":
			force = true
		default:
			return fmt.Errorf("unknown flag: %s", arg)
		}
	}

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)
	dbPath := filepath.Join(getDataPath(), "recentviews.db")

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(renderConfig(dbPath, jwtSecret)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println()
	fmt.Println("  Next:")
	fmt.Println("    recentviews seed     # add demo catalog items")
	fmt.Println("    recentviews serve    # start the server")
	return nil
}

func renderConfig(dbPath, jwtSecret string) string {
	return fmt.Sprintf(`# recentviews configuration
# Generated by recentviews init

server:
  http_addr: "localhost:8080"

database:
  driver: "sqlite"
  path: %q

session:
  backend: "memory"
  prefix: "recently_viewed"
  cookie_name: "recentviews_session"
  ttl: "24h"
  max_sessions: 10000

features:
  persist_recent_views: true

auth:
  jwt_secret: %q

catalog:
  limits:
    product: 10
    article: 5

logging:
  level: "info"
  format: "text"
`, dbPath, jwtSecret)
}

// tokenArgs are the flags of the token command.
type tokenArgs struct {
	viewerID string
	ttl      time.Duration
}

// parseTokenArgs supports both "--flag value" and "--flag=value" formats.
func parseTokenArgs(args []string) (tokenArgs, error) {
	out := tokenArgs{ttl: 30 * 24 * time.Hour}

	value := func(i *int, name string) (string, error) {
		arg := args[*i]
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, nil
		}
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--viewer" || strings.HasPrefix(arg, "--viewer="):
			v, err := value(&i, "--viewer")
			if err != nil {
				return out, err
			}
			out.viewerID = strings.TrimSpace(v)
			if out.viewerID == "" {
				return out, fmt.Errorf("--viewer cannot be empty")
			}
		case arg == "--ttl" || strings.HasPrefix(arg, "--ttl="):
			v, err := value(&i, "--ttl")
			if err != nil {
				return out, err
			}
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return out, fmt.Errorf("--ttl must be a positive duration, got %q", v)
			}
			out.ttl = d
		case strings.HasPrefix(arg, "-"):
			return out, fmt.Errorf("unknown flag: %s", arg)
		default:
			return out, fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if out.viewerID == "" {
		out.viewerID = uuid.NewString()
	}
	return out, nil
}

// runToken mints a bearer token identifying a viewer.
func runToken(args []string) error {
	parsed, err := parseTokenArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(parsed.viewerID, parsed.ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(os.Stderr, "viewer %s, expires %s\n",
		parsed.viewerID, time.Now().Add(parsed.ttl).UTC().Format("Jan 02, 2006"))
	fmt.Println(token)
	return nil
}

// demoItems are inserted by the seed command.
var demoItems = []store.Item{
	{Kind: catalog.KindProduct, ID: "lamp", Title: "Brass desk lamp"},
	{Kind: catalog.KindProduct, ID: "chair", Title: "Oak reading chair"},
	{Kind: catalog.KindProduct, ID: "rug", Title: "Wool rug"},
	{Kind: catalog.KindProduct, ID: "shelf", Title: "Walnut bookshelf"},
	{Kind: catalog.KindProduct, ID: "kettle", Title: "Enamel kettle"},
	{Kind: catalog.KindArticle, ID: "care-guide", Title: "Caring for wood furniture"},
	{Kind: catalog.KindArticle, ID: "lighting", Title: "Layered lighting at home"},
	{Kind: catalog.KindArticle, ID: "small-spaces", Title: "Furnishing small spaces"},
}

// runSeed inserts the demo catalog, skipping items that already exist.
func runSeed(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStoreWithDriver(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	created, skipped, err := seedCatalog(ctx, st)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Seeded %d items (%d already present) into %s\n", created, skipped, cfg.Database.Path)
	return nil
}

func seedCatalog(ctx context.Context, items store.CatalogStore) (created, skipped int, err error) {
	for _, demo := range demoItems {
		item := demo
		err := items.CreateItem(ctx, &item)
		switch {
		case errors.Is(err, store.ErrDuplicateItem):
			skipped++
		case err != nil:
			return created, skipped, fmt.Errorf("creating %s %s: %w", item.Kind, item.ID, err)
		default:
			created++
		}
	}
	return created, skipped, nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
