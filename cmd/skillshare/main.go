// Command skillshare is a terminal client for the skill sharing platform.
// It keeps its session in local client storage and runs the same page
// controllers as the page view server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/anonto42/skillshare/internal/session"
	"github.com/anonto42/skillshare/pkg/config"
	"github.com/anonto42/skillshare/validators"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	serverFlag := flag.String("server", "", "Override API base URL (e.g. http://localhost:8080/api)")
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()
	if *serverFlag != "" {
		cfg.APIBaseURL = strings.TrimRight(*serverFlag, "/")
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	log := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app is what a command runs against.
type app struct {
	api   *api.Client
	pages *pages.Set
	out   io.Writer
}

func run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	db, err := config.InitDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	client := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.APITimeout), api.WithLogger(log))
	set := pages.NewSet(pages.Deps{
		API:          client,
		Validator:    validators.NewValidator(),
		Logger:       log,
		PollInterval: cfg.PollInterval,
	}, db.Storage, session.DefaultNamespace)
	defer set.Dashboard.Unmount()

	a := &app{api: client, pages: set, out: out}
	rest := args[1:]
	if len(rest) < cmd.args {
		return fmt.Errorf("usage: skillshare %s %s", args[0], cmd.usage)
	}
	err = cmd.run(ctx, a, rest)
	if errors.Is(err, session.ErrLoggedOut) {
		return errors.New("not logged in; run: skillshare login <userId> <token>")
	}
	return err
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: skillshare [-server URL] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
}
