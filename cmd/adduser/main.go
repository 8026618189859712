package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/log"
	"expenses/internal/services"
)

func main() {
	cli.LoadEnvFile()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	appCfg := config.Load()

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dataBackend := fs.String("backend", appCfg.DataBackend, "Store: sqlite or postgres")
	dbPath := fs.String("db", appCfg.SQLiteDBPath, "Path to SQLite database file")
	dsn := fs.String("dsn", appCfg.DatabaseURL, "Postgres connection URL")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" || *email == "" {
		fmt.Fprintln(stdout, "Usage: adduser -name <name> -email <email> [-password <password>] [-backend sqlite|postgres] [-db <path>] [-dsn <url>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: name, email")
	}
	if *dataBackend == string(backend.MemoryStore) {
		return fmt.Errorf("memory backend does not persist users")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := backend.NewFactory(log.Discard()).CreateBackend(ctx, backend.Config{
		Store:           backend.StoreType(*dataBackend),
		SQLiteDBPath:    *dbPath,
		DatabaseURL:     *dsn,
		Cache:           backend.MemoryCache,
		CacheMaxEntries: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer res.Cleanup()

	// Tokens are never issued here, so the signing secret is irrelevant.
	auth := services.NewAuthService(res.Store, "unused-signing-secret", 0, nil)
	user, err := auth.Register(ctx, *name, *email, password)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", user.Email, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
