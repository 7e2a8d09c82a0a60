package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/AgentForm/internal/api"
	"github.com/BTreeMap/AgentForm/internal/flow"
	"github.com/BTreeMap/AgentForm/internal/genai"
	"github.com/BTreeMap/AgentForm/internal/lockfile"
	"github.com/BTreeMap/AgentForm/internal/models"
	"github.com/BTreeMap/AgentForm/internal/promptgen"
	"github.com/BTreeMap/AgentForm/internal/store"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the CLI reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "API_ADDR",
		"AGENTFORM_ADDR", "AGENTFORM_OPENAI_API_KEY", "AGENTFORM_MODEL", "AGENTFORM_STATE_DIR",
		"AGENTFORM_DB_DSN", "AGENTFORM_QUESTIONNAIRE", "AGENTFORM_REQUEST_TIMEOUT",
		"AGENTFORM_DEBUG", "AGENTFORM_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func keepDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	keepDefaultLogger(t)
	root := newRootCmd(viper.New())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	v := viper.New()
	root := newRootCmd(v)
	require.NoError(t, root.PersistentFlags().Parse(nil))

	cfg := loadConfig(v)
	assert.Equal(t, api.DefaultServerAddress, cfg.Addr)
	assert.Equal(t, genai.DefaultModel, cfg.Model)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, api.DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Empty(t, cfg.DBDSN)
	assert.Empty(t, cfg.OpenAIKey)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.usesSQLite())
}

func TestLoadConfig_Flags(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	v := viper.New()
	root := newRootCmd(v)
	require.NoError(t, root.PersistentFlags().Parse([]string{
		"--addr", ":9090",
		"--state-dir", dir,
		"--db-dsn", "forms.db",
		"--request-timeout", "30s",
		"--debug",
	}))

	cfg := loadConfig(v)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, filepath.Join(dir, "forms.db"), cfg.DBDSN)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.usesSQLite())
}

func TestLoadConfig_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("API_ADDR", ":7070")
	t.Setenv("AGENTFORM_MODEL", "gpt-4o")
	t.Setenv("AGENTFORM_DB_DSN", "postgres://u:p@localhost/agentform")

	v := viper.New()
	root := newRootCmd(v)
	require.NoError(t, root.PersistentFlags().Parse(nil))

	cfg := loadConfig(v)
	assert.Equal(t, "sk-plain", cfg.OpenAIKey)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "postgres://u:p@localhost/agentform", cfg.DBDSN)
	assert.False(t, cfg.usesSQLite())

	t.Setenv("AGENTFORM_OPENAI_API_KEY", "sk-prefixed")
	t.Setenv("AGENTFORM_ADDR", ":6060")
	t.Setenv("AGENTFORM_DEBUG", "yes")
	cfg = loadConfig(v)
	assert.Equal(t, "sk-prefixed", cfg.OpenAIKey)
	assert.Equal(t, ":6060", cfg.Addr)
	assert.True(t, cfg.Debug)
}

func TestResolveDSN(t *testing.T) {
	cases := []struct {
		dsn, want string
	}{
		{"", ""},
		{"agentform.db", "/state/agentform.db"},
		{"/data/agentform.db", "/data/agentform.db"},
		{"data/agentform.db", "data/agentform.db"},
		{"file:agentform.db?cache=shared", "file:agentform.db?cache=shared"},
		{"postgres://u:p@localhost/db", "postgres://u:p@localhost/db"},
		{"host=localhost dbname=agentform", "host=localhost dbname=agentform"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, resolveDSN(tc.dsn, "/state"), tc.dsn)
	}
}

func TestInitLogger(t *testing.T) {
	keepDefaultLogger(t)

	var stderr bytes.Buffer
	closeFn, err := initLogger(Config{}, false, &stderr)
	require.NoError(t, err)
	slog.Debug("hidden at info level")
	slog.Info("visible")
	require.NoError(t, closeFn())
	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "visible")

	stderr.Reset()
	closeFn, err = initLogger(Config{Debug: true}, true, &stderr)
	require.NoError(t, err)
	slog.Info("interactive without a log file")
	require.NoError(t, closeFn())
	assert.Empty(t, stderr.String())

	logPath := filepath.Join(t.TempDir(), "agentform.log")
	closeFn, err = initLogger(Config{Debug: true, LogFile: logPath}, true, &stderr)
	require.NoError(t, err)
	slog.Debug("goes to the file")
	require.NoError(t, closeFn())
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "goes to the file")
	assert.Empty(t, stderr.String())

	_, err = initLogger(Config{LogFile: filepath.Join(t.TempDir(), "missing", "x.log")}, true, &stderr)
	assert.Error(t, err)
}

func TestLoadQuestionnaire(t *testing.T) {
	fallback := flow.GenericForm()
	q, err := loadQuestionnaire(Config{}, fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback.Name, q.Name)

	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: feedback
questions:
  - id: mood
    type: multipleChoice
    text: How was it?
    options: [Good, Bad]
  - id: bye
    type: static
    text: Thanks
`), 0644))
	q, err = loadQuestionnaire(Config{Questionnaire: path}, fallback)
	require.NoError(t, err)
	assert.Equal(t, "feedback", q.Name)
	assert.Len(t, q.Questions, 2)

	_, err = loadQuestionnaire(Config{Questionnaire: filepath.Join(t.TempDir(), "nope.yaml")}, fallback)
	assert.Error(t, err)
}

func TestBuildOptions(t *testing.T) {
	assert.Empty(t, buildStoreOptions(Config{}))
	assert.Len(t, buildStoreOptions(Config{DBDSN: "/tmp/a.db"}), 1)
	assert.Len(t, buildStoreOptions(Config{DBDSN: "postgres://localhost/db"}), 1)

	assert.Empty(t, buildGenAIOptions(Config{}))
	assert.Len(t, buildGenAIOptions(Config{OpenAIKey: "k", Model: "m"}), 2)

	q := flow.GenericForm()
	assert.Len(t, buildAPIOptions(Config{}, nil), 1)
	assert.Len(t, buildAPIOptions(Config{Addr: ":1"}, &q), 3)
}

func TestFrameworkComponents(t *testing.T) {
	desc, _ := promptgen.LookupFramework("SPEAR Framework")
	assert.Equal(t, "Start, Provide, Explain, Ask, Rinse & Repeat", frameworkComponents(desc.Description))
	assert.Equal(t, "", frameworkComponents(promptgen.FallbackFrameworkDescription))
	assert.Len(t, frameworkRows(), len(promptgen.Frameworks()))
}

func TestFrameworksCommand(t *testing.T) {
	clearEnv(t)
	out, _, err := execute(t, "frameworks")
	require.NoError(t, err)
	assert.Contains(t, out, "CARE Framework")
	assert.Contains(t, out, "Context, Ask, Rules, Examples")
	assert.Contains(t, out, "RPG Framework")

	out, _, err = execute(t, "frameworks", "--json")
	require.NoError(t, err)
	var got []promptgen.Framework
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, promptgen.Frameworks(), got)
}

func seedStore(t *testing.T, dsn string) models.Submission {
	t.Helper()
	st, err := store.Open(store.WithSQLiteDSN(dsn))
	require.NoError(t, err)
	defer st.Close()

	sub := models.Submission{
		ID:              "sub-1",
		Questionnaire:   flow.QuestionnaireAgentWizard,
		Answers:         []models.Answer{{QuestionID: flow.QuestionAgentName, Value: models.Text("Ada")}},
		GeneratedPrompt: "You are Ada.",
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, st.AddSubmission(sub))
	require.NoError(t, st.AddReceipt(models.GenerationReceipt{
		ID:         "rcpt-1",
		Framework:  "CARE Framework",
		AgentName:  "Ada",
		Status:     models.GenerationCompleted,
		Fragments:  3,
		Bytes:      12,
		StartedAt:  sub.CreatedAt,
		FinishedAt: sub.CreatedAt.Add(1500 * time.Millisecond),
	}))
	return sub
}

func TestSubmissionsCommand(t *testing.T) {
	clearEnv(t)
	dsn := filepath.Join(t.TempDir(), "agentform.db")
	sub := seedStore(t, dsn)

	out, _, err := execute(t, "submissions", "--db-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, sub.ID)
	assert.Contains(t, out, "12 chars")
	assert.Contains(t, out, "2026-01-02 03:04:05")

	out, _, err = execute(t, "submissions", "--db-dsn", dsn, "--json")
	require.NoError(t, err)
	var got []models.Submission
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, sub.ID, got[0].ID)
	assert.Equal(t, "Ada", got[0].Answers[0].Value.String())

	out, _, err = execute(t, "submissions", "--db-dsn", dsn, "--json", "--questionnaire-name", flow.QuestionnaireGenericForm)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestSubmissionsCommand_InMemoryWarns(t *testing.T) {
	clearEnv(t)
	_, errOut, err := execute(t, "submissions")
	require.NoError(t, err)
	assert.Contains(t, errOut, "no --db-dsn configured")
}

func TestReceiptsCommand(t *testing.T) {
	clearEnv(t)
	dsn := filepath.Join(t.TempDir(), "agentform.db")
	seedStore(t, dsn)

	out, _, err := execute(t, "submissions", "receipts", "--db-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "rcpt-1")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "1.5s")

	out, _, err = execute(t, "submissions", "receipts", "--db-dsn", dsn, "--json")
	require.NoError(t, err)
	var got []models.GenerationReceipt
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Fragments)
}

func TestServeCommand_StateDirLocked(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	held, err := lockfile.AcquireLock(dir)
	require.NoError(t, err)
	defer held.Release()

	_, _, err = execute(t, "serve", "--state-dir", dir, "--db-dsn", "agentform.db", "--openai-api-key", "sk-test")
	require.Error(t, err)
	var lockErr *lockfile.LockError
	assert.True(t, errors.As(err, &lockErr), "got %v", err)
}

func TestServeCommand_BadQuestionnaire(t *testing.T) {
	clearEnv(t)
	_, _, err := execute(t, "serve", "--questionnaire", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWizardCommand_RequiresAPIKey(t *testing.T) {
	clearEnv(t)
	_, _, err := execute(t, "wizard")
	require.Error(t, err)
	assert.True(t, errors.Is(err, genai.ErrMissingAPIKey))
	assert.Contains(t, err.Error(), "--openai-api-key")
}

func TestPrintSubmission(t *testing.T) {
	var buf bytes.Buffer
	printSubmission(&buf, models.Submission{ID: "s1", Questionnaire: "generic-form", Answers: make([]models.Answer, 5)})
	assert.Equal(t, "Submission s1 recorded (generic-form, 5 answers)\n", buf.String())

	buf.Reset()
	printSubmission(&buf, models.Submission{ID: "s2", Questionnaire: "agent-wizard", GeneratedPrompt: "# Prompt"})
	assert.Equal(t, "Submission s2 recorded (agent-wizard, 0 answers)\n\n# Prompt\n", buf.String())
}
