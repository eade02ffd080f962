// Command nexusctl is the operator console: it edits the report blueprint,
// runs the analysis pipeline and generates reports and letters.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"nexus/internal/config"
	"nexus/internal/gateway/app"
	"nexus/internal/session"
	"nexus/internal/store"
)

// env is what every subcommand works against. It is built once per
// invocation and closed after the command, which flushes the autosave.
type env struct {
	cfg     *config.Config
	logger  *log.Logger
	stores  *app.Stores
	session *session.Session
	closeFn func() error
	notify  atomic.Pointer[func(string)]
}

// SetNotify redirects session notices, for example into a running TUI.
func (e *env) SetNotify(fn func(string)) { e.notify.Store(&fn) }

type options struct {
	configPath string
	fresh      bool
	verbose    bool
}

func (o *options) open(ctx context.Context, stderr io.Writer) (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	out := io.Discard
	if o.verbose {
		out = stderr
	}
	logger := log.New(out, "nexusctl ", log.LstdFlags)

	stores, err := app.OpenStores(cfg, logger)
	if err != nil {
		return nil, err
	}
	gen, closeFn, err := app.BuildGenerator(ctx, cfg, logger)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger, stores: stores, closeFn: closeFn}
	e.SetNotify(func(msg string) { fmt.Fprintln(stderr, msg) })
	s := session.New(session.Config{
		Generator:    gen,
		Store:        store.New(stores.KV),
		Archive:      stores.Archive,
		Logger:       logger,
		Debounce:     cfg.Session.Debounce,
		StageTimeout: cfg.Session.StageTimeout,
		Notify:       func(msg string) { (*e.notify.Load())(msg) },
	})
	if !o.fresh {
		if _, err := s.Restore(ctx); err != nil {
			logger.Printf("autosave unavailable: %v", err)
		}
	}
	e.session = s
	return e, nil
}

func (e *env) Close(ctx context.Context) error {
	return errors.Join(e.session.Close(ctx), e.closeFn(), e.stores.Close())
}

// cli owns the env for one invocation. finish closes it whether or not the
// command succeeded, so a failed command still flushes its edits.
type cli struct {
	root    *cobra.Command
	current *env
}

func newCLI() *cli {
	c := &cli{}
	opts := &options{}
	root := &cobra.Command{
		Use:           "nexusctl",
		Short:         "Operator console for the Nexus report generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.current = e
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $NEXUS_CONFIG)")
	root.PersistentFlags().BoolVar(&opts.fresh, "fresh", false, "ignore the autosaved blueprint")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	get := func() *env { return c.current }
	root.AddCommand(
		newShowCmd(get),
		newSetCmd(get),
		newToggleCmd(get),
		newScoreCmd(get),
		newResetCmd(get),
		newReportCmd(get),
		newLetterCmd(get),
		newBrainCmd(get),
		newSavedCmd(get),
		newInquireCmd(get),
		newEconCmd(get),
		newRefineCmd(get),
		newCapsCmd(get),
		newChatCmd(get),
		newWizardCmd(get),
	)
	c.root = root
	return c
}

func (c *cli) execute(ctx context.Context, args ...string) error {
	if args != nil {
		c.root.SetArgs(args)
	}
	err := c.root.ExecuteContext(ctx)
	if c.current != nil {
		err = errors.Join(err, c.current.Close(context.WithoutCancel(ctx)))
		c.current = nil
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI().execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}
