// tabctl is the command-line front-end for the tab service. Each invocation
// logs in, runs one command through the panel and exits; no session is kept
// between runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/kathulis/tabkeeper/internal/client/panel"
	"github.com/kathulis/tabkeeper/internal/client/recordapi"
	"github.com/kathulis/tabkeeper/internal/client/reminder"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/pkg/config"
	"github.com/kathulis/tabkeeper/pkg/logger"
)

// errReported marks failures the panel has already shown as a notice.
var errReported = errors.New("reported")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	name     string
	password string
	role     string
	platform string
	url      string
	timeout  time.Duration
	open     bool
	verbose  bool
}

func run(args []string, stdout, stderr io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading .env: %w", err)
	}
	cfg, err := config.LoadContext(context.Background())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	var opts options
	flagSet := pflag.NewFlagSet("tabctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.name, "name", "n", cfg.Client.User, "login name (env TAB_USER)")
	flagSet.StringVarP(&opts.password, "password", "p", cfg.Client.Password, "login password (env TAB_PASSWORD)")
	flagSet.StringVarP(&opts.role, "role", "r", cfg.Client.Role, "admin or customer (env TAB_ROLE)")
	flagSet.StringVar(&opts.platform, "platform", defaultPlatform(), "ios, android or other; selects reminder link style")
	flagSet.StringVar(&opts.url, "url", cfg.Client.BaseURL, "tab service base URL (env TAB_API_URL)")
	flagSet.DurationVar(&opts.timeout, "timeout", cfg.Client.Timeout, "per-request timeout")
	flagSet.BoolVar(&opts.open, "open", false, "hand reminder links to the system opener instead of printing them")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return errors.New("missing command")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.Init(logger.Options{Level: level, Pretty: true, Output: stderr, Service: "tabctl"})

	role, err := domain.ParseRole(opts.role)
	if err != nil {
		return err
	}
	if opts.name == "" || opts.password == "" {
		return errors.New("--name and --password are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := recordapi.New(opts.url, log, recordapi.WithTimeout(opts.timeout))
	session, err := client.Login(ctx, opts.name, opts.password, role)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	p := panel.New(client.WithSession(&session), &session, panel.Options{
		Notifier: printNotices(stderr),
		Opener:   linkOpener(stdout, opts.open),
		Platform: reminder.ParsePlatform(opts.platform),
		Reminders: reminder.Template{
			CountryCode: cfg.Reminder.CountryCode,
			Currency:    cfg.Reminder.Currency,
			Venue:       cfg.Reminder.Venue,
		},
	}, log)
	defer p.Logout()

	if err := cmd.run(ctx, p, stdout, rest[1:]); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			return fmt.Errorf("%s: %w (usage: tabctl %s)", rest[0], err, cmd.usage)
		}
		return errReported
	}
	return nil
}

func printNotices(w io.Writer) panel.Notifier {
	return panel.NotifierFunc(func(n panel.Notice) {
		fmt.Fprint(w, formatNotice(n))
	})
}

func formatNotice(n panel.Notice) string {
	out := fmt.Sprintf("[%s] %s", n.Level, n.Title)
	if n.Detail != "" {
		out += ": " + n.Detail
	}
	out += "\n"
	for _, f := range sortedKeys(n.Fields) {
		out += fmt.Sprintf("  %s: %s\n", f, n.Fields[f])
	}
	return out
}

// linkOpener prints reminder links, or passes them to xdg-open / open when
// launch is set.
func linkOpener(w io.Writer, launch bool) reminder.Opener {
	return reminder.OpenerFunc(func(ctx context.Context, link string) error {
		if !launch {
			_, err := fmt.Fprintln(w, link)
			return err
		}
		bin := "xdg-open"
		if runtime.GOOS == "darwin" {
			bin = "open"
		}
		if err := exec.CommandContext(ctx, bin, link).Run(); err != nil {
			return fmt.Errorf("%s: %w", bin, err)
		}
		return nil
	})
}

func defaultPlatform() string {
	if runtime.GOOS == "ios" || runtime.GOOS == "android" {
		return runtime.GOOS
	}
	return string(reminder.PlatformOther)
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `tabctl - manage customer tabs at the venue.

Usage:
  tabctl [flags] <command> [args]

Commands:
`)
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}
