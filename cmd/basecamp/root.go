package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkordes/trip-basecamp/internal/basecamp"
	"github.com/pkordes/trip-basecamp/internal/client"
)

// settings is the resolved configuration of one invocation. Every value can
// come from a flag or a BASECAMP_* environment variable.
type settings struct {
	Server   string
	TripID   uuid.UUID
	UserID   uuid.UUID
	ClientID string
	Debounce time.Duration
	Verbose  bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BASECAMP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "basecamp",
		Short:         "Read, edit and watch a trip's basecamp",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `basecamp edits the shared and personal basecamps of a trip.

Edits are applied optimistically and confirmed with the server. If another
member changed the basecamp first, their value is kept and reported.`,
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "basecamp API base URL")
	flags.String("trip", "", "trip id")
	flags.String("user", "", "your user id")
	flags.String("client-id", "", "session id sent with writes (default: random per run)")
	flags.Duration("debounce", basecamp.DefaultDebounceWindow, "how long a change is treated as your own echo")
	flags.BoolP("verbose", "v", false, "log sync activity to stderr")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newGetCmd(v),
		newSetCmd(v),
		newClearCmd(v),
		newWatchCmd(v),
		newPersonalCmd(v),
	)
	return root
}

// loadSettings resolves flags and environment. The trip id is always
// required; the user id only when needUser is set.
func loadSettings(v *viper.Viper, needUser bool) (settings, error) {
	s := settings{
		Server:   v.GetString("server"),
		ClientID: v.GetString("client-id"),
		Debounce: v.GetDuration("debounce"),
		Verbose:  v.GetBool("verbose"),
	}

	trip := v.GetString("trip")
	if trip == "" {
		return settings{}, fmt.Errorf("--trip (or BASECAMP_TRIP) is required")
	}
	id, err := uuid.Parse(trip)
	if err != nil {
		return settings{}, fmt.Errorf("invalid trip id %q: %w", trip, err)
	}
	s.TripID = id

	if user := v.GetString("user"); user != "" {
		id, err := uuid.Parse(user)
		if err != nil {
			return settings{}, fmt.Errorf("invalid user id %q: %w", user, err)
		}
		s.UserID = id
	} else if needUser {
		return settings{}, fmt.Errorf("--user (or BASECAMP_USER) is required")
	}
	return s, nil
}

func (s settings) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if s.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// session is a coordinator wired to the configured server.
type session struct {
	settings
	store    *client.Client
	cache    *basecamp.Cache
	coord    *basecamp.Coordinator
	personal *basecamp.PersonalCoordinator
}

func openSession(cmd *cobra.Command, v *viper.Viper, needUser bool, notify func(basecamp.Notification)) (*session, error) {
	s, err := loadSettings(v, needUser)
	if err != nil {
		return nil, err
	}
	log := s.logger(cmd.ErrOrStderr())

	store, err := client.New(s.Server, client.Options{Logger: log})
	if err != nil {
		return nil, err
	}
	cache := basecamp.NewCache()
	return &session{
		settings: s,
		store:    store,
		cache:    cache,
		coord: basecamp.NewCoordinator(store, cache, basecamp.Options{
			UserID:         s.UserID,
			ClientID:       s.ClientID,
			DebounceWindow: s.Debounce,
			Logger:         log,
			Notify:         notify,
		}),
		personal: basecamp.NewPersonalCoordinator(store, cache, log),
	}, nil
}
