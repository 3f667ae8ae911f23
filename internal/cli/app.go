package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"empty-jar/internal/backend"
	"empty-jar/internal/config"
	"empty-jar/internal/ledger"
	"empty-jar/internal/localstore"

	"github.com/spf13/cobra"
)

// app is one command invocation: the opened profile and the session on it.
type app struct {
	opts    *RootOptions
	profile profileFile
	store   *localstore.Store
	session *ledger.Session
	logger  *slog.Logger
	out     io.Writer
}

func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	profile, err := loadProfileFile(opts.Profile)
	if err != nil {
		return nil, err
	}
	store, err := localstore.Open(filepath.Join(opts.Profile, databaseFile))
	if err != nil {
		return nil, err
	}

	a := &app{
		opts:    opts,
		profile: profile,
		store:   store,
		logger:  config.NewLogger(opts.cfg.LogLevel),
		out:     cmd.OutOrStdout(),
	}

	session, err := ledger.Open(ctx, a.deps(), profile.Identity)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.session = session
	return a, nil
}

func (a *app) deps() ledger.Deps {
	return ledger.Deps{
		Profile:     a.store,
		NewCloud:    a.newCloud,
		Clock:       a.opts.now,
		Logger:      a.logger,
		MaxAttempts: a.opts.cfg.MaxAttempts,
		Offline:     a.opts.Offline,
	}
}

func (a *app) newCloud(id ledger.Identity, online func() bool) backend.Backend {
	return backend.NewCloud(backend.CloudConfig{
		BaseURL:   a.opts.cfg.APIURL,
		Token:     id.Token,
		AccountID: id.AccountID,
		Timeout:   a.opts.cfg.RequestTimeout,
		Online:    online,
		DeviceID:  a.profile.DeviceID,
	})
}

// authClient talks to the auth endpoints before any account is known.
func (a *app) authClient() *backend.Cloud {
	return backend.NewCloud(backend.CloudConfig{
		BaseURL:  a.opts.cfg.APIURL,
		Timeout:  a.opts.cfg.RequestTimeout,
		DeviceID: a.profile.DeviceID,
	})
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp opens the profile for the duration of fn.
func withApp(opts *RootOptions, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// reportResult prints the outcome of a note or settings write. A rejected
// write is returned as the command's error.
func (a *app) reportResult(what string, res ledger.Result, err error) error {
	if err != nil {
		return err
	}
	switch res.Status {
	case ledger.Queued:
		a.printf("%s saved on this device, will sync when online\n", what)
	default:
		a.printf("%s saved\n", what)
	}
	return nil
}
