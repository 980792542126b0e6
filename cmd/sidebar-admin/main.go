// ABOUTME: Admin CLI for inspecting and maintaining the sidebar database
// ABOUTME: Opens the store directly from the config file, no running app needed

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/smartdesarrollador/widg-sid-v9/internal/config"
	"github.com/smartdesarrollador/widg-sid-v9/internal/crypt"
	"github.com/smartdesarrollador/widg-sid-v9/internal/store"
)

const banner = `
     _     _      _                           _           _
 ___(_) __| | ___| |__   __ _ _ __        __ _  __| |_ __ ___ (_)_ __
/ __| |/ _' |/ _ \ '_ \ / _' | '__|_____ / _' |/ _' | '_ ' _ \| | '_ \
\__ \ | (_| |  __/ |_) | (_| | | |_____| (_| | (_| | | | | | | | | | |
|___/_|\__,_|\___|_.__/ \__,_|_|        \__,_|\__,_|_| |_| |_|_|_| |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	configPath := os.Getenv("SIDEBAR_CONFIG")
	if configPath == "" {
		configPath = "sidebar.yaml"
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	s, err := openStore(configPath)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	ctx := context.Background()

	switch cmd {
	case "categories":
		err = cmdCategories(ctx, s, args)
	case "items":
		err = cmdItems(ctx, s, args)
	case "lists":
		err = cmdLists(ctx, s, args)
	case "history":
		err = cmdHistory(ctx, s, args)
	case "panels":
		err = cmdPanels(ctx, s)
	case "settings":
		err = cmdSettings(ctx, s, args)
	case "seed":
		err = cmdSeed(ctx, s)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: sidebar-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  categories              List categories")
	fmt.Println("  categories add <name>   Create a category")
	fmt.Println("  categories rm <id>      Delete a category and its items")
	fmt.Println("  items <category-id>     List a category's items")
	fmt.Println("  items search <query>    Search items across categories")
	fmt.Println("  lists <category-id>     List the ordered groups of a category")
	fmt.Println("  history                 Show clipboard history")
	fmt.Println("  history clear           Delete all clipboard history")
	fmt.Println("  panels                  List saved pinned panels")
	fmt.Println("  settings                Dump all settings")
	fmt.Println("  settings set <k> <v>    Store a setting (value parsed as JSON scalar)")
	fmt.Println("  seed                    Create starter categories for a fresh database")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  SIDEBAR_CONFIG          Config file path (default: sidebar.yaml)")
	fmt.Println()
}

// openStore loads the config, builds the cipher, and opens the database.
func openStore(configPath string) (*store.SQLiteStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(setupLogger(cfg.Logging))

	cipher, err := buildCipher(cfg.Encryption)
	if err != nil {
		return nil, err
	}

	return store.NewSQLiteStore(cfg.Database.Path, cipher, cfg.History.MaxEntries)
}

// buildCipher derives the content key from a key file or passphrase.
func buildCipher(cfg config.EncryptionConfig) (*crypt.Cipher, error) {
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		return crypt.New(key)
	}
	return crypt.New(crypt.DeriveKey(cfg.Passphrase, []byte(cfg.Salt)))
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func cmdCategories(ctx context.Context, s *store.SQLiteStore, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "add":
			if len(args) < 2 {
				return fmt.Errorf("usage: categories add <name>")
			}
			cat := &store.Category{Name: strings.Join(args[1:], " "), IsActive: true}
			if err := s.CreateCategory(ctx, cat); err != nil {
				return err
			}
			color.Green("Created category %s (%s)\n", cat.Name, cat.ID)
			return nil
		case "rm":
			if len(args) < 2 {
				return fmt.Errorf("usage: categories rm <id>")
			}
			if err := s.DeleteCategory(ctx, args[1]); err != nil {
				return err
			}
			color.Green("Deleted category %s\n", args[1])
			return nil
		case "list":
		default:
			return fmt.Errorf("unknown subcommand: categories %s", args[0])
		}
	}

	cats, err := s.ListCategories(ctx, true)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tORDER\tACTIVE\tUSED")
	for _, c := range cats {
		fmt.Fprintf(w, "%s\t%s %s\t%d\t%v\t%d\n", c.ID, c.Icon, c.Name, c.OrderIndex, c.IsActive, c.AccessCount)
	}
	return w.Flush()
}

func cmdItems(ctx context.Context, s *store.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: items <category-id> | items search <query>")
	}

	var items []*store.Item
	var err error
	if args[0] == "search" {
		if len(args) < 2 {
			return fmt.Errorf("usage: items search <query>")
		}
		items, err = s.SearchItems(ctx, strings.Join(args[1:], " "), 50)
	} else {
		items, err = s.ItemsByCategory(ctx, args[0])
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTYPE\tLIST\tSENSITIVE\tUSED")
	for _, it := range items {
		group := "-"
		if it.ListGroup != nil {
			group = fmt.Sprintf("%s#%d", *it.ListGroup, it.ListPosition)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%d\n", it.ID, it.Label, it.Type, group, it.IsSensitive, it.UseCount)
	}
	return w.Flush()
}

func cmdLists(ctx context.Context, s *store.SQLiteStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lists <category-id>")
	}

	groups, err := s.ListGroups(ctx, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tITEMS\tFIRST\tCREATED")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", g.ListGroup, g.ItemCount, g.FirstLabel, g.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}

func cmdHistory(ctx context.Context, s *store.SQLiteStore, args []string) error {
	if len(args) > 0 && args[0] == "clear" {
		if err := s.ClearHistory(ctx); err != nil {
			return err
		}
		color.Green("History cleared\n")
		return nil
	}

	entries, err := s.History(ctx, 0)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COPIED\tSOURCE\tCONTENT")
	for _, e := range entries {
		source := "ad-hoc"
		if e.ItemLabel != "" {
			source = e.ItemLabel
		}
		content := e.Content
		if len(content) > 60 {
			content = content[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.CopiedAt.Format(time.TimeOnly), source, content)
	}
	return w.Flush()
}

func cmdPanels(ctx context.Context, s *store.SQLiteStore) error {
	panels, err := s.Panels(ctx, false)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tPOS\tSIZE\tOPENS\tACTIVE")
	for _, p := range panels {
		name := p.CategoryName
		if p.CustomName != nil {
			name = *p.CustomName
		}
		fmt.Fprintf(w, "%s\t%s\t%d,%d\t%dx%d\t%d\t%v\n",
			p.ID, name, p.X, p.Y, p.Width, p.Height, p.OpenCount, p.IsActive)
	}
	return w.Flush()
}

func cmdSettings(ctx context.Context, s *store.SQLiteStore, args []string) error {
	if len(args) > 0 && args[0] == "set" {
		if len(args) < 3 {
			return fmt.Errorf("usage: settings set <key> <value>")
		}
		key, raw := args[1], args[2]

		// Store numbers and booleans as themselves, everything else as a string.
		var value any = raw
		if n, err := strconv.Atoi(raw); err == nil {
			value = n
		} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
			value = f
		} else if b, err := strconv.ParseBool(raw); err == nil {
			value = b
		}

		if err := s.SetSetting(ctx, key, value); err != nil {
			return err
		}
		color.Green("Set %s\n", key)
		return nil
	}

	settings, err := s.AllSettings(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for key, value := range settings {
		fmt.Fprintf(w, "%s\t%s\n", key, value)
	}
	return w.Flush()
}

// cmdSeed creates the starter categories a fresh install ships with.
func cmdSeed(ctx context.Context, s *store.SQLiteStore) error {
	existing, err := s.ListCategories(ctx, true)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("database already has %d categories, refusing to seed", len(existing))
	}

	starters := []store.Category{
		{Name: "Comandos", Icon: "⚡", IsPredefined: true},
		{Name: "Enlaces", Icon: "🔗", IsPredefined: true},
		{Name: "Snippets", Icon: "📝", IsPredefined: true},
		{Name: "Rutas", Icon: "📂", IsPredefined: true},
	}

	for i := range starters {
		starters[i].IsActive = true
		if err := s.CreateCategory(ctx, &starters[i]); err != nil {
			return err
		}
		color.Green("Created %s %s\n", starters[i].Icon, starters[i].Name)
	}
	return nil
}
