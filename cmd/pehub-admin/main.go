package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/api"
	"github.com/tendant/pehub/pkg/pehub/config"
)

const usage = `PE Hub Admin CLI

Maintenance and administration commands that talk to the hub's database
and file storage directly.

USAGE:
  pehub-admin <command> [options]

COMMANDS:
  token       Issue an API token for a user
  stats       Show profile, content and request counts
  profiles    List profiles, optionally by role
  promote     Grant the admin role to a profile by email
  demote      Revoke the admin role from a profile
  cleanup     Retry removal of files left behind by deletions
  reconcile   Repair approvals interrupted before their request was updated

ENVIRONMENT VARIABLES:
  DATABASE_URL      memory or a PostgreSQL connection string
  STORAGE_URL       memory, file:///path or s3://bucket
  ADMIN_EMAILS      Comma separated admin allowlist
  JWT_SECRET        Secret used to sign tokens

  Configuration can be loaded from a .env file in the current directory.

OPTIONS:
  --as=<uuid>        Acting admin user ID (stats, profiles, promote, demote)
  --email=<email>    Acting admin email, or the token subject's email
  --user-id=<uuid>   Token subject (token)
  --role=<role>      user or admin (profiles)
  --id=<uuid>        Profile to demote (demote)
  --json             Output as JSON

EXAMPLES:
  pehub-admin token --user-id=550e8400-e29b-41d4-a716-446655440000 --email=coach@school.example
  pehub-admin promote --as=<admin-id> --email=head@school.example teacher@school.example
  pehub-admin profiles --as=<admin-id> --role=admin --json
`

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	flags   map[string]string
	args    []string
	useJSON bool
}

func parseArgs(args []string) options {
	opts := options{flags: map[string]string{}}
	for _, arg := range args {
		key, value := parseFlag(arg)
		switch {
		case key == "json":
			opts.useJSON = true
		case key != "":
			opts.flags[key] = value
		default:
			opts.args = append(opts.args, arg)
		}
	}
	return opts
}

func parseFlag(arg string) (string, string) {
	if !strings.HasPrefix(arg, "--") || len(arg) == 2 {
		return "", ""
	}
	key, value, found := strings.Cut(arg[2:], "=")
	if !found {
		return key, "true"
	}
	return key, value
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	command := args[0]
	opts := parseArgs(args[1:])

	switch command {
	case "help", "--help", "-h":
		fmt.Fprintln(out, usage)
		return nil
	case "token":
		return issueToken(opts, out)
	case "stats", "profiles", "promote", "demote", "cleanup", "reconcile":
	default:
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}

	cfg, err := config.Load(config.WithEnv(""), config.WithReconcileOnStart(false))
	if err != nil {
		return err
	}
	rt, err := cfg.BuildService(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	switch command {
	case "cleanup":
		n, err := rt.Service.RetryCleanups(ctx)
		if err != nil {
			return err
		}
		return report(out, opts.useJSON, map[string]int{"removed": n}, "Removed %d file(s)\n", n)
	case "reconcile":
		n, err := rt.Service.ReconcileApprovals(ctx)
		if err != nil {
			return err
		}
		return report(out, opts.useJSON, map[string]int{"repaired": n}, "Repaired %d approval(s)\n", n)
	}

	actor, err := actingAdmin(opts)
	if err != nil {
		return err
	}
	switch command {
	case "stats":
		stats, err := rt.Service.Stats(ctx, actor)
		if err != nil {
			return err
		}
		return report(out, opts.useJSON, stats, "Profiles: %d\nContent: %d\nContent requests: %d\n",
			stats.Profiles, stats.Content, stats.ContentRequests)
	case "profiles":
		profiles, err := rt.Service.ListProfiles(ctx, actor, pehub.Role(opts.flags["role"]))
		if err != nil {
			return err
		}
		return printProfiles(out, opts.useJSON, profiles)
	case "promote":
		if len(opts.args) != 1 {
			return fmt.Errorf("promote takes exactly one email: %w", errUsage)
		}
		profile, created, err := rt.Service.PromoteAdmin(ctx, actor, opts.args[0])
		if err != nil {
			return err
		}
		verb := "Promoted"
		if created {
			verb = "Created admin"
		}
		return report(out, opts.useJSON, profile, "%s %s (%s)\n", verb, profile.Email, profile.ID)
	default:
		id, err := uuid.Parse(opts.flags["id"])
		if err != nil {
			return fmt.Errorf("demote needs --id=<uuid>: %w", errUsage)
		}
		if err := rt.Service.DemoteAdmin(ctx, actor, id); err != nil {
			return err
		}
		return report(out, opts.useJSON, map[string]string{"demoted": id.String()}, "Demoted %s\n", id)
	}
}

func actingAdmin(opts options) (pehub.Actor, error) {
	id, err := uuid.Parse(opts.flags["as"])
	if err != nil {
		return pehub.Actor{}, fmt.Errorf("admin commands need --as=<uuid>: %w", errUsage)
	}
	return pehub.Actor{UserID: id, Email: opts.flags["email"]}, nil
}

func issueToken(opts options, out io.Writer) error {
	id, err := uuid.Parse(opts.flags["user-id"])
	if err != nil {
		return fmt.Errorf("token needs --user-id=<uuid>: %w", errUsage)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	token, err := api.IssueToken(api.NewTokenAuth(secret), id, opts.flags["email"])
	if err != nil {
		return err
	}
	return report(out, opts.useJSON, map[string]string{"token": token}, "%s\n", token)
}

func report(out io.Writer, useJSON bool, v interface{}, format string, args ...interface{}) error {
	if useJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintf(out, format, args...)
	return err
}

func printProfiles(out io.Writer, useJSON bool, profiles []*pehub.Profile) error {
	if useJSON {
		return report(out, true, profiles, "")
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tCREATED")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Email, truncate(p.FullName, 30), p.Role, p.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "\nTotal: %d\n", len(profiles))
	return w.Flush()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
