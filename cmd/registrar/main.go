// Command registrar is the terminal client of the registration workflow. It
// keeps the current ambassador in a local session file between runs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"fieldreg/internal/options"
	"fieldreg/internal/platform/config"
	"fieldreg/internal/platform/logger"
	"fieldreg/internal/platform/restclient"
	"fieldreg/internal/records"
	"fieldreg/internal/registration"
	"fieldreg/internal/session"
)

func main() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  login <documento>   start a session")
		fmt.Fprintln(out, "  logout              end the session")
		fmt.Fprintln(out, "  me                  show the current ambassador")
		fmt.Fprintln(out, "  ambassador          sign up, or edit the current ambassador")
		fmt.Fprintln(out, "  replica [-id N]     create a replica, or edit replica N")
		fmt.Fprintln(out, "  participant -id N   register participants into replica N")
		fmt.Fprintln(out, "  replicas            list your replicas")
		fmt.Fprintln(out, "  registrations [-id N]")
		fmt.Fprintln(out, "\nFlags:")
		flag.PrintDefaults()
	}
	configPath := flag.String("config", "", "YAML config file (overrides FIELDREG_CONFIG)")
	offline := flag.Bool("offline", false, "use the bundled sample option lists instead of the remote API")
	replicaID := flag.Int64("id", 0, "replica id for replica, participant and registrations")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configPath, *offline, *verbose, *replicaID, flag.Args()); err != nil {
		if errors.Is(err, ErrAborted) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, offline, verbose bool, replicaID int64, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return err
		}
	}

	log := logger.Discard()
	if verbose {
		log = logger.NewWithWriter(os.Stderr, cfg.Log.Level, "text")
	}

	rest, err := restclient.New(cfg.Remote.BaseURL, restclient.WithTimeout(cfg.Remote.Timeout), restclient.WithLogger(log))
	if err != nil {
		return err
	}
	recs := records.NewClient(rest, log, nil)

	var repo options.Repository = options.NewHTTPRepository(rest, log, nil)
	if offline {
		repo = options.SampleData()
	}

	sessions := session.NewService(session.NewFileStore(cfg.Session.Path), recs, session.WithLogger(log))
	forms := registration.NewFormStore(time.Hour, nil)
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		loc = time.FixedZone("PET", -5*60*60)
	}
	svc := registration.New(recs, sessions, forms, registration.Config{
		Options:   repo,
		Resolver:  recs,
		Debounce:  cfg.Lookup.Debounce,
		MinDigits: cfg.Lookup.MinDigits,
		Location:  loc,
	}, registration.WithLogger(log))

	c := &cli{
		key:      cfg.Session.Key,
		sessions: sessions,
		svc:      svc,
		out:      os.Stdout,
	}
	c.runner = &runner{flow: svc, prompt: &surveyDriver{out: os.Stdout}, sessionID: c.key}
	return c.dispatch(ctx, args, replicaID)
}

// cli binds commands to the local session key.
type cli struct {
	key      string
	sessions *session.Service
	svc      *registration.Service
	runner   *runner
	out      io.Writer
}

func (c *cli) dispatch(ctx context.Context, args []string, replicaID int64) error {
	switch args[0] {
	case "login":
		if len(args) < 2 {
			return errors.New("login requires a document number")
		}
		actor, err := c.sessions.Login(ctx, c.key, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Bienvenido, %s\n", actor.Ambassador.FullName())
		return nil
	case "logout":
		return c.sessions.Logout(ctx, c.key)
	case "me":
		actor, err := c.sessions.Current(ctx, c.key)
		if err != nil {
			return err
		}
		return c.print(actor)
	case "ambassador":
		return c.ambassador(ctx)
	case "replica":
		res, err := c.runner.fill(ctx, registration.OpenRequest{Kind: "replica", ReplicaID: replicaID})
		if err != nil {
			return err
		}
		return c.print(res)
	case "participant":
		return c.participants(ctx, replicaID)
	case "replicas":
		page, err := c.svc.Replicas(ctx, c.key, records.Page{Limit: 20})
		if err != nil {
			return err
		}
		return c.print(page)
	case "registrations":
		page, err := c.svc.Registrations(ctx, c.key, replicaID, records.Page{Limit: 20})
		if err != nil {
			return err
		}
		return c.print(page)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// ambassador signs up when no session exists and edits the actor otherwise.
func (c *cli) ambassador(ctx context.Context) error {
	sessionID := c.key
	if _, err := c.sessions.Current(ctx, c.key); errors.Is(err, session.ErrNoActor) {
		sessionID = ""
	} else if err != nil {
		return err
	}

	r := *c.runner
	r.sessionID = sessionID
	res, err := r.fill(ctx, registration.OpenRequest{Kind: "ambassador"})
	if err != nil {
		return err
	}
	if res.Ambassador != nil && sessionID == "" {
		// Signup issued a server session; the terminal keeps its own key.
		if _, err := c.sessions.Adopt(ctx, c.key, *res.Ambassador); err != nil {
			return err
		}
		if err := c.sessions.Logout(ctx, res.SessionID); err != nil {
			return err
		}
	}
	return c.print(res)
}

// participants registers participants into one replica until the user stops.
func (c *cli) participants(ctx context.Context, replicaID int64) error {
	if replicaID == 0 {
		return registration.ErrReplicaRequired
	}
	for {
		res, err := c.runner.fill(ctx, registration.OpenRequest{Kind: "participant", ReplicaID: replicaID})
		if err != nil {
			return err
		}
		if res.Registration != nil {
			fmt.Fprintf(c.out, "Registrado: %s (#%d)\n", res.Registration.NombresApellidos, res.Registration.ID)
		}
		more, err := c.runner.prompt.Confirm(ctx, "¿Registrar otro participante?", true)
		if err != nil || !more {
			return err
		}
	}
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
