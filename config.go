/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	backendAuto      = "auto"
	backendAnthropic = "anthropic"
	backendOpenAI    = "openai"
	backendScripted  = "scripted"
)

type Config struct {
	anthropicKey      string
	anthropicModel    string
	backend           string
	bind              string
	envFile           string
	generationTimeout time.Duration
	maxTokens         int
	openAIBaseURL     string
	openAIKey         string
	openAIModel       string
	port              int
	prefix            string
	profile           bool
	table             string
	tlsCert           string
	tlsKey            string
	verbose           bool
	version           bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxTokens < 1 {
		return fmt.Errorf("invalid max tokens (must be positive): %d", c.maxTokens)
	}
	if c.generationTimeout < 0 {
		return fmt.Errorf("invalid generation timeout (must not be negative): %s", c.generationTimeout)
	}
	if strings.TrimSpace(c.table) == "" {
		return errors.New("--table must not be empty")
	}

	switch c.backend {
	case backendAuto, backendScripted:
	case backendAnthropic:
		if c.anthropicKey == "" {
			return errors.New("--model-backend anthropic requires --anthropic-api-key")
		}
	case backendOpenAI:
		if c.openAIKey == "" {
			return errors.New("--model-backend openai requires --openai-api-key")
		}
	default:
		return fmt.Errorf("invalid model backend (must be one of auto, anthropic, openai, scripted): %q", c.backend)
	}

	return nil
}

// resolvedBackend picks a concrete backend when auto is selected, preferring
// whichever API key is configured.
func (c *Config) resolvedBackend() string {
	if c.backend != backendAuto {
		return c.backend
	}
	switch {
	case c.anthropicKey != "":
		return backendAnthropic
	case c.openAIKey != "":
		return backendOpenAI
	default:
		return backendScripted
	}
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// loadEnvFile reads KEY=value pairs into the process environment without
// overriding anything already set. A missing default file is not an error.
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	return godotenv.Load(path)
}

// envFileFromArgs finds --env-file before flag parsing, since the file must be
// loaded before viper reads the environment.
func envFileFromArgs(args []string) (string, bool) {
	for i, arg := range args {
		switch {
		case arg == "--env-file" && i+1 < len(args):
			return args[i+1], true
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file="), true
		}
	}
	if path := os.Getenv("PARLOR_ENV_FILE"); path != "" {
		return path, true
	}
	return ".env", false
}

func newCmd(cfg *Config, args []string) (*cobra.Command, error) {
	envFile, required := envFileFromArgs(args)
	if err := loadEnvFile(envFile, required); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PARLOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "parlor",
		Short:         "A two-player murder mystery, narrated live by Mrs. Hartwell.",
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

	fs.StringVar(&cfg.anthropicKey, "anthropic-api-key", "", "api key for the anthropic backend (env: PARLOR_ANTHROPIC_API_KEY)")
	fs.StringVar(&cfg.anthropicModel, "anthropic-model", "claude-sonnet-4-20250514", "anthropic model to narrate with (env: PARLOR_ANTHROPIC_MODEL)")
	fs.StringVarP(&cfg.backend, "model-backend", "m", backendAuto, "narrator backend: auto, anthropic, openai or scripted (env: PARLOR_MODEL_BACKEND)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PARLOR_BIND)")
	fs.StringVar(&cfg.envFile, "env-file", envFile, "dotenv file to load before reading the environment (env: PARLOR_ENV_FILE)")
	fs.DurationVar(&cfg.generationTimeout, "generation-timeout", 30*time.Second, "time allowed for one narrator reply, 0 to disable (env: PARLOR_GENERATION_TIMEOUT)")
	fs.IntVar(&cfg.maxTokens, "max-tokens", 300, "maximum tokens per narrator reply (env: PARLOR_MAX_TOKENS)")
	fs.StringVar(&cfg.openAIBaseURL, "openai-base-url", "", "override the openai api base url (env: PARLOR_OPENAI_BASE_URL)")
	fs.StringVar(&cfg.openAIKey, "openai-api-key", "", "api key for the openai backend (env: PARLOR_OPENAI_API_KEY)")
	fs.StringVar(&cfg.openAIModel, "openai-model", "gpt-4o-mini", "openai model to narrate with (env: PARLOR_OPENAI_MODEL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PARLOR_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PARLOR_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PARLOR_PROFILE)")
	fs.StringVar(&cfg.table, "table", "parlor", "name of the game table and its broadcast channel (env: PARLOR_TABLE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PARLOR_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PARLOR_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PARLOR_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PARLOR_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("parlor v{{.Version}}\n")
	cmd.SetArgs(args)

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd, nil
}
