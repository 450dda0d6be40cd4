package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erraggy/wmtools"
	"github.com/erraggy/wmtools/internal/config"
	"github.com/erraggy/wmtools/internal/tracing"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/portal"
	"github.com/erraggy/wmtools/session"
	"github.com/erraggy/wmtools/webmap"
	"github.com/spf13/cobra"
)

// env is the per-invocation state built from the global flags.
type env struct {
	cfg      *config.Config
	log      webmap.Logger
	store    session.Store
	shutdown func(context.Context) error
}

// close flushes pending spans.
func (e *env) close(ctx context.Context) {
	if e.shutdown != nil {
		if err := e.shutdown(ctx); err != nil {
			e.log.Warn("tracing shutdown failed", "error", err)
		}
	}
}

// mode returns Apply when apply is set and the configured mode otherwise.
func (e *env) mode(apply bool) mutation.Mode {
	if apply {
		return mutation.Apply
	}
	return e.cfg.Mode()
}

// session creates a batch session over the store.
func (e *env) session(mode mutation.Mode, saveCopy bool) *session.Session {
	opts := []session.Option{session.WithLogger(e.log)}
	if saveCopy {
		opts = append(opts, session.WithSaveCopy(e.cfg.TitleSuffix))
	}
	return session.New(e.store, mode, opts...)
}

// ids returns args, or every document of a file store when args is empty.
func (e *env) ids(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	fs, ok := e.store.(*portal.FileStore)
	if !ok {
		return nil, errors.New("at least one web map id is required")
	}
	ids, err := fs.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no web maps found in %s", fs.Dir)
	}
	return ids, nil
}

// setup loads the configuration and builds the logger, tracer and store.
func (g *GlobalFlags) setup(cmd *cobra.Command) (*env, error) {
	level, err := parseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := webmap.NewSlogAdapter(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.PortalURL != "" {
		cfg.Portal.URL = g.PortalURL
	}
	logger.Debug("configuration loaded", "config", cfg.String())

	shutdown, err := tracing.Init(cmd.Context(), tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Writer:  cmd.ErrOrStderr(),
	}, wmtools.Version())
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: logger, shutdown: shutdown}
	if cfg.Portal.URL != "" {
		client, err := portal.NewClient(cfg.Portal.URL,
			portal.WithToken(cfg.Portal.Token),
			portal.WithTimeout(cfg.Portal.Timeout),
			portal.WithClientLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		e.store = client
	} else {
		e.store = portal.NewFileStore(g.Dir, logger)
	}
	return e, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: use debug, info, warn or error", s)
	}
	return level, nil
}
