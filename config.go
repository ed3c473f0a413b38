/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/partydeck/games/source"
)

const minSessionTimeout = time.Second

type Config struct {
	bind           string
	fallbackFile   string
	fetchInterval  time.Duration
	fetchTimeout   time.Duration
	maxPayload     int64
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	seed           uint64
	sessionTimeout time.Duration
	sheetURL       string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.fetchTimeout <= 0 {
		return fmt.Errorf("invalid fetch timeout (must be positive): %s", c.fetchTimeout)
	}
	if c.fetchInterval < 0 {
		return fmt.Errorf("invalid fetch interval (must not be negative): %s", c.fetchInterval)
	}
	if c.sessionTimeout != 0 && c.sessionTimeout < minSessionTimeout {
		return fmt.Errorf("invalid session timeout (must be 0 or at least %s): %s", minSessionTimeout, c.sessionTimeout)
	}
	if c.playerTimeout < 0 {
		return fmt.Errorf("invalid player timeout (must not be negative): %s", c.playerTimeout)
	}
	if c.maxPayload < 1 {
		return fmt.Errorf("invalid max payload (must be at least 1 byte): %d", c.maxPayload)
	}
	if c.sheetURL != "" {
		if err := source.ValidateURL(c.sheetURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PARTYDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "partydeck",
		Short:         "Party card games (themed decks, truth or dare, fortunes) fed from a spreadsheet.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PARTYDECK_BIND)")
	fs.StringVar(&cfg.fallbackFile, "fallback-file", "", "toml, yaml or json file replacing the built-in offline cards (env: PARTYDECK_FALLBACK_FILE)")
	fs.DurationVar(&cfg.fetchInterval, "fetch-interval", 2*time.Second, "minimum time between sheet downloads (env: PARTYDECK_FETCH_INTERVAL)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", 10*time.Second, "timeout for each sheet download (env: PARTYDECK_FETCH_TIMEOUT)")
	fs.Int64Var(&cfg.maxPayload, "max-payload", 4<<20, "maximum sheet size in bytes (env: PARTYDECK_MAX_PAYLOAD)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before a disconnected host hands over to another player (env: PARTYDECK_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PARTYDECK_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PARTYDECK_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PARTYDECK_PROFILE)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "seed for shuffles and draws, 0 for random (env: PARTYDECK_SEED)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended, 0 to keep them (env: PARTYDECK_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.sheetURL, "sheet-url", "", "published sheet (json or csv) to load cards from (env: PARTYDECK_SHEET_URL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PARTYDECK_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PARTYDECK_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PARTYDECK_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PARTYDECK_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("partydeck v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
