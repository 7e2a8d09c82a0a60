package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/AgentForm/internal/api"
	"github.com/BTreeMap/AgentForm/internal/flow"
	"github.com/BTreeMap/AgentForm/internal/genai"
	"github.com/BTreeMap/AgentForm/internal/promptgen"
	"github.com/BTreeMap/AgentForm/internal/store"
	"github.com/BTreeMap/AgentForm/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for AgentForm state data
	DefaultStateDir = "/var/lib/agentform"
	// EnvPrefix prefixes every configuration environment variable
	EnvPrefix = "AGENTFORM"
)

// Config holds the resolved flag and environment configuration.
type Config struct {
	Addr           string
	OpenAIKey      string
	Model          string
	StateDir       string
	DBDSN          string
	Questionnaire  string
	RequestTimeout time.Duration
	Debug          bool
	LogFile        string
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("main: no .env file loaded", "error", err)
	}
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "AgentForm",
		Short: "Questionnaire wizard and system-prompt generator for AI agents",
		Long: `AgentForm walks a user through a questionnaire describing an AI agent and
streams a generated system prompt from a chat-completion API.

Run "AgentForm wizard" for the interactive agent wizard, "AgentForm form" for
the generic form, or "AgentForm serve" to expose the prompt endpoint over HTTP.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("addr", api.DefaultServerAddress, "API server address (overrides $AGENTFORM_ADDR or $API_ADDR)")
	pf.String("openai-api-key", "", "OpenAI API key (overrides $AGENTFORM_OPENAI_API_KEY or $OPENAI_API_KEY)")
	pf.String("model", genai.DefaultModel, "chat model used for prompt generation")
	pf.String("state-dir", DefaultStateDir, "state directory for AgentForm data")
	pf.String("db-dsn", "", "Postgres DSN or SQLite path; relative SQLite names live in the state directory, empty keeps data in memory")
	pf.String("questionnaire", "", "YAML questionnaire replacing the built-in one")
	pf.Duration("request-timeout", api.DefaultRequestTimeout, "upper bound on a single prompt generation")
	pf.Bool("debug", false, "enable debug logging (overrides $AGENTFORM_DEBUG)")
	pf.String("log-file", "", "log destination for interactive commands (discarded when empty)")
	for _, name := range []string{"addr", "openai-api-key", "model", "state-dir", "db-dsn", "questionnaire", "request-timeout", "debug", "log-file"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(serveCmd(v))
	root.AddCommand(wizardCmd(v))
	root.AddCommand(formCmd(v))
	root.AddCommand(frameworksCmd())
	root.AddCommand(submissionsCmd(v))
	return root
}

// loadConfig resolves configuration from flags and AGENTFORM_* variables, then
// falls back to the unprefixed OPENAI_API_KEY and API_ADDR.
func loadConfig(v *viper.Viper) Config {
	cfg := Config{
		Addr:           v.GetString("addr"),
		OpenAIKey:      v.GetString("openai-api-key"),
		Model:          v.GetString("model"),
		StateDir:       v.GetString("state-dir"),
		DBDSN:          v.GetString("db-dsn"),
		Questionnaire:  v.GetString("questionnaire"),
		RequestTimeout: v.GetDuration("request-timeout"),
		Debug:          v.GetBool("debug") || util.ParseBoolEnv(EnvPrefix+"_DEBUG", false),
		LogFile:        v.GetString("log-file"),
	}
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = util.FirstEnv("OPENAI_API_KEY")
	}
	if !v.IsSet("addr") {
		if addr := util.FirstEnv("API_ADDR"); addr != "" {
			cfg.Addr = addr
		}
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}
	cfg.DBDSN = resolveDSN(cfg.DBDSN, cfg.StateDir)
	return cfg
}

// resolveDSN places bare SQLite file names inside the state directory.
func resolveDSN(dsn, stateDir string) string {
	if dsn == "" || store.DetectDSNType(dsn) == "postgres" {
		return dsn
	}
	if strings.HasPrefix(dsn, "file:") || filepath.IsAbs(dsn) || strings.ContainsRune(dsn, filepath.Separator) {
		return dsn
	}
	return filepath.Join(stateDir, dsn)
}

// usesSQLite reports whether the configured store is a local SQLite file.
func (c Config) usesSQLite() bool {
	return c.DBDSN != "" && store.DetectDSNType(c.DBDSN) == "sqlite3"
}

// initLogger installs the default slog logger. Interactive commands log to
// LogFile or nowhere, since stderr output would tear the terminal UI.
func initLogger(cfg Config, interactive bool, stderr io.Writer) (func() error, error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	out := stderr
	closeFn := func() error { return nil }
	if interactive {
		out = io.Discard
		if cfg.LogFile != "" {
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
			}
			out = f
			closeFn = f.Close
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	slog.Debug("initLogger: logger configured", "level", level.String(), "interactive", interactive, "log_file", cfg.LogFile)
	return closeFn, nil
}

// loadQuestionnaire returns the YAML questionnaire when one is configured,
// otherwise fallback.
func loadQuestionnaire(cfg Config, fallback flow.Questionnaire) (flow.Questionnaire, error) {
	if cfg.Questionnaire == "" {
		return fallback, nil
	}
	q, err := flow.LoadQuestionnaire(cfg.Questionnaire)
	if err != nil {
		return flow.Questionnaire{}, err
	}
	slog.Info("loadQuestionnaire: using questionnaire file", "path", cfg.Questionnaire, "name", q.Name, "questions", len(q.Questions))
	return q, nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(cfg Config) []store.Option {
	var storeOpts []store.Option
	if cfg.DBDSN == "" {
		slog.Debug("buildStoreOptions: no database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(cfg.DBDSN) == "postgres" {
		slog.Debug("buildStoreOptions: configuring PostgreSQL store", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(cfg.DBDSN))
	} else {
		slog.Debug("buildStoreOptions: configuring SQLite store", "db_path", cfg.DBDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(cfg.DBDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(cfg Config) []genai.Option {
	var genaiOpts []genai.Option
	if cfg.OpenAIKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(cfg.OpenAIKey))
	}
	if cfg.Model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(cfg.Model))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(cfg Config, q *flow.Questionnaire) []api.Option {
	apiOpts := []api.Option{api.WithRequestTimeout(cfg.RequestTimeout)}
	if cfg.Addr != "" {
		apiOpts = append(apiOpts, api.WithAddr(cfg.Addr))
	}
	if q != nil {
		apiOpts = append(apiOpts, api.WithQuestionnaire(*q))
	}
	return apiOpts
}

// frameworkComponents lists the component names of a framework description,
// e.g. "Context, Ask, Rules, Examples" for CARE.
func frameworkComponents(desc string) string {
	var parts []string
	for _, line := range strings.Split(desc, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		if name, _, ok := strings.Cut(line[2:], ":"); ok {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}

// frameworkRows lists the built-in frameworks for display.
func frameworkRows() [][2]string {
	var rows [][2]string
	for _, f := range promptgen.Frameworks() {
		rows = append(rows, [2]string{f.Name, frameworkComponents(f.Description)})
	}
	return rows
}
