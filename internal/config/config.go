// Package config reads server settings from flags, JEOPARDY_* environment
// variables and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "JEOPARDY"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Addr         string
	Store        string
	DatabaseURL  string
	DefaultLobby string
	MaxPlayers   int
	BoardCols    int
	BoardRows    int
	PublicURL    string
	Origins      []string
	LogLevel     string
	Dev          bool
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("--database-url is required with --store=postgres")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory or postgres)", c.Store)
	}
	if c.MaxPlayers < 1 {
		return fmt.Errorf("invalid max players: %d", c.MaxPlayers)
	}
	if c.BoardCols < 1 || c.BoardRows < 1 {
		return fmt.Errorf("invalid board size: %dx%d", c.BoardCols, c.BoardRows)
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid public url: %q", c.PublicURL)
		}
	}
	return nil
}

// LoadDotenv reads .env files if present. Variables already set win.
func LoadDotenv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// BindFlags registers every server setting on fs and fills unset flags from
// the environment.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Addr, "addr", "a", ":8080", "address to listen on (env: JEOPARDY_ADDR)")
	fs.StringVar(&cfg.Store, "store", StoreMemory, "lobby store: memory or postgres (env: JEOPARDY_STORE)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres connection string (env: JEOPARDY_DATABASE_URL)")
	fs.StringVar(&cfg.DefaultLobby, "default-lobby", "dev", "lobby started at boot, empty for none (env: JEOPARDY_DEFAULT_LOBBY)")
	fs.IntVar(&cfg.MaxPlayers, "max-players", 4, "players per new lobby (env: JEOPARDY_MAX_PLAYERS)")
	fs.IntVar(&cfg.BoardCols, "board-cols", 6, "categories on a new board (env: JEOPARDY_BOARD_COLS)")
	fs.IntVar(&cfg.BoardRows, "board-rows", 5, "tiles per category (env: JEOPARDY_BOARD_ROWS)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "base URL used in join links and QR codes (env: JEOPARDY_PUBLIC_URL)")
	fs.StringSliceVar(&cfg.Origins, "origins", nil, "extra websocket origin patterns (env: JEOPARDY_ORIGINS)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn or error (env: JEOPARDY_LOG_LEVEL)")
	fs.BoolVarP(&cfg.Dev, "dev", "d", false, "human readable logs (env: JEOPARDY_DEV)")

	ApplyEnv(fs)
}

// ApplyEnv sets every flag of fs that was not given on the command line from
// its JEOPARDY_* variable, with dashes turned into underscores.
func ApplyEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// NewCommand wires cfg into a cobra command that validates before run.
func NewCommand(use, short string, cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}
	BindFlags(cmd.Flags(), cfg)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}
