// Command veraz-users manages dashboard accounts in the SQLite user store.
//
//	veraz-users add -username ana -role usuario   (password from VERAZ_USER_PASSWORD or stdin)
//	veraz-users list
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
	"text/tabwriter"
	"time"

	"veraz/internal/auth"
	"veraz/internal/cli"
	"veraz/internal/core"
	"veraz/internal/log"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, logger := cli.LoadConfig(log.ComponentStorage)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "add":
		err = add(ctx, repo, os.Args[2:], os.Stdin)
	case "list":
		err = list(ctx, repo, os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: veraz-users add -username NAME [-role admin|usuario]")
	fmt.Fprintln(os.Stderr, "       veraz-users list")
}

// add creates or updates an account. An existing username gets its password
// and role replaced.
func add(ctx context.Context, users auth.UserWriter, args []string, stdin io.Reader) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	username := fs.String("username", "", "account name")
	role := fs.String("role", string(core.RoleUser), "admin or usuario")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password := os.Getenv("VERAZ_USER_PASSWORD")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if err := auth.ValidateLogin(*username, password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u := auth.User{
		Username:     strings.TrimSpace(*username),
		PasswordHash: hash,
		Role:         core.Role(*role),
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.SaveUser(ctx, u); err != nil {
		return err
	}
	fmt.Printf("Saved user %s (%s)\n", u.Username, u.Role)
	return nil
}

func list(ctx context.Context, users auth.UserWriter, out io.Writer) error {
	all, err := users.ListUsers(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tCREATED")
	for _, u := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.Role, u.CreatedAt.Format(time.DateOnly))
	}
	return tw.Flush()
}
