package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/shelfdesk/shelfadmin/apiclient"
	"github.com/shelfdesk/shelfadmin/catalog"
	"github.com/shelfdesk/shelfadmin/credential"
	"github.com/shelfdesk/shelfadmin/internal/config"
	"github.com/shelfdesk/shelfadmin/internal/metrics"
	"github.com/shelfdesk/shelfadmin/session"
	bboltstorage "github.com/shelfdesk/shelfadmin/storage/bbolt"
)

var errNotLoggedIn = errors.New(`not logged in; run "shelfadmin login"`)

// app is everything a command needs, opened once per invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	repo     *bboltstorage.Store
	api      *apiclient.Client
	session  *session.Manager
	catalog  *catalog.Client
	registry *prometheus.Registry
	stdin    io.Reader
	out      io.Writer
	errOut   io.Writer
}

func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New(g.configFile)
	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag(config.KeyAPIURL, flags.Lookup("api-url")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag(config.KeyDataDir, flags.Lookup("data-dir")); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func (g *globalFlags) open(cmd *cobra.Command) (*app, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	level := cfg.SlogLevel()
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := bboltstorage.NewRepositoryFromFile(cfg.SessionFile(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	api := apiclient.New(
		apiclient.WithBaseURL(cfg.APIURL),
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithLogger(logger),
		apiclient.WithMetrics(m),
		apiclient.WithUserAgent("shelfadmin/"+Version),
	)
	mgr := session.New(api, credential.NewStore(repo),
		session.WithLogger(logger),
		session.WithMetrics(m),
		session.WithLoginPath(cfg.LoginPath),
	)
	hint := &loginHint{w: cmd.ErrOrStderr()}
	mgr.Subscribe(hint.notify)

	logger.Debug("opened session storage", "path", cfg.SessionFile(), "api_url", cfg.APIURL)
	return &app{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		api:      api,
		session:  mgr,
		catalog:  catalog.New(api, logger),
		registry: reg,
		stdin:    cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}, nil
}

func (a *app) close(dumpMetrics bool) error {
	if dumpMetrics {
		if err := writeMetrics(a.errOut, a.registry); err != nil {
			a.logger.Warn("writing metrics", "error", err)
		}
	}
	return a.repo.Close()
}

// run opens the app around fn and always closes the session storage.
func (g *globalFlags) run(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := g.open(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(g.metrics); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close session storage: %w", cerr)
			}
		}()
		return fn(cmd.Context(), a, args)
	}
}

// loginHint tells the user once per process that the session was ended for
// them. Voluntary logouts print nothing.
type loginHint struct {
	once sync.Once
	w    io.Writer
}

func (h *loginHint) notify(ev session.Event) {
	if ev.Reason == session.ReasonLogout {
		return
	}
	h.once.Do(func() {
		fmt.Fprintf(h.w, "session ended (%s); run \"shelfadmin login\"\n", ev.Reason)
	})
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// currentUserID resolves an explicit --user or falls back to the stored profile.
func (a *app) currentUserID(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	p := a.session.CurrentUser()
	if p == nil || p.ID() == "" {
		return "", errNotLoggedIn
	}
	return p.ID(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printMessage prints the "message" field of a server reply, or fallback.
func printMessage(w io.Writer, body json.RawMessage, fallback string) {
	var reply struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &reply); err == nil && reply.Message != "" {
		fallback = reply.Message
	}
	fmt.Fprintln(w, fallback)
}

// printBody pretty-prints a raw JSON body.
func printBody(w io.Writer, body json.RawMessage) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		_, err = fmt.Fprintln(w, string(body))
		return err
	}
	return printJSON(w, v)
}
