package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/marcus/sutra/internal/journey"
	"github.com/marcus/sutra/internal/localstore"
	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/syncclient"
	"github.com/marcus/sutra/internal/syncconfig"
	"github.com/spf13/cobra"
)

// session is the journey state one command works on: the local store, and
// when logged in and online, the server client and subscription gate.
type session struct {
	local   *localstore.Store
	client  *syncclient.Client
	gate    *journey.Gate
	journey *journey.Provider
	locale  string
	log     *slog.Logger
	timeout time.Duration
}

// newLogger returns the CLI logger: warnings and above on stderr, or
// everything with --debug.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newClient returns a server client for the stored credentials, or nil when
// sync is disabled, --offline is set or nobody is logged in.
func newClient(cmd *cobra.Command) *syncclient.Client {
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		return nil
	}
	if !syncconfig.GetSyncEnabled() || !syncconfig.IsAuthenticated() {
		return nil
	}
	return syncclient.New(syncconfig.GetServerURL(), syncconfig.GetAPIKey(), syncconfig.GetRequestTimeout())
}

// openSession loads the journey. Without a client the journey is local only
// and every edit is allowed.
func openSession(cmd *cobra.Command) (*session, error) {
	dir, err := syncconfig.DataDir()
	if err != nil {
		return nil, err
	}
	local, err := localstore.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	s := &session{
		local:   local,
		client:  newClient(cmd),
		locale:  syncconfig.GetLocale(),
		log:     newLogger(cmd),
		timeout: syncconfig.GetRequestTimeout(),
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := journey.Options{Local: local, Logger: s.log, RemoteTimeout: s.timeout}
	if s.client != nil {
		s.gate = journey.NewGate(local, s.client, s.log)
		if _, err := s.gate.Refresh(ctx); err != nil {
			if errors.Is(err, syncclient.ErrUnauthorized) {
				s.log.Warn("stored login was rejected, continuing with the local journey", "err", err)
				output.Warning("your login has expired; run 'sutra auth login' to sync again")
				s.client, s.gate = nil, nil
			} else {
				output.Warning("could not check your subscription; the journey is read-only until the server is reachable")
			}
		}
	}
	if s.client != nil {
		opts.Remote = s.client
		opts.Access = s.gate
	}

	p, err := journey.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.journey = p
	return s, nil
}

// close flushes pending remote writes
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout+time.Second)
	defer cancel()
	if err := s.journey.Close(ctx); err != nil {
		output.Warning("%v", err)
	}
	if st := s.journey.Status(); s.client != nil && st.LastError != "" {
		output.Warning("changes are saved on this machine but not on the server: %s", st.LastError)
	}
}

// dispatch applies a and reports a read-only gate as a user-facing error
func (s *session) dispatch(ctx context.Context, a progress.Action) (progress.State, error) {
	st, err := s.journey.Dispatch(ctx, a)
	if errors.Is(err, journey.ErrReadOnly) {
		return st, fmt.Errorf("%w (status: %s); run 'sutra subscription upgrade'", err, s.gate.View().Status)
	}
	return st, err
}

// today returns the journey day for now, or 1 without a start date
func (s *session) today() int {
	st := s.journey.State()
	if day, ok := progress.CurrentDay(st.Settings, time.Now()); ok {
		return day
	}
	return 1
}

// requireClient returns a client or an error telling the user to log in
func requireClient(cmd *cobra.Command) (*syncclient.Client, error) {
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		return nil, invalidInput("this command needs the server; drop --offline")
	}
	if !syncconfig.IsAuthenticated() {
		return nil, fmt.Errorf("%w: run 'sutra auth login' first", syncclient.ErrUnauthorized)
	}
	return syncclient.New(syncconfig.GetServerURL(), syncconfig.GetAPIKey(), syncconfig.GetRequestTimeout()), nil
}
