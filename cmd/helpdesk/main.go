// helpdesk is the command-line front end of the helpdesk client core. It
// keeps the bearer token in the user config directory between invocations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"helpdesk/internal/client"
	"helpdesk/internal/config"
	"helpdesk/internal/failure"
	"helpdesk/internal/notify"
	"helpdesk/internal/tokenstore"
	"helpdesk/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", failure.UserMessage(err))
		os.Exit(1)
	}
}

type app struct {
	c    *client.Client
	out  io.Writer
	note notify.Sink
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.LoadClient()

	flagSet := pflag.NewFlagSet("helpdesk", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "helpdesk API base URL")
	flagSet.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "where the session token is kept")
	flagSet.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	verbose := flagSet.BoolP("verbose", "v", false, "log API traffic to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(stdout, flagSet)
		return nil
	}

	env := cfg.Env
	if *verbose {
		env = "dev"
	}
	log := logger.NewTo(stderr, env)
	if !*verbose {
		log = log.Level(zerolog.ErrorLevel)
	}

	path := cfg.TokenFile
	if path == "" {
		p, err := tokenstore.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	note := notify.NewLines(stdout, stderr)
	c, err := client.New(client.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Tokens:  tokenstore.NewFile(path),
		Notify:  note,
		Log:     log,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	name, rest := flagSet.Arg(0), flagSet.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (see helpdesk --help)", name)
	}
	return cmd.run(ctx, &app{c: c, out: stdout, note: note}, rest)
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: helpdesk [flags] <command> [command flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
