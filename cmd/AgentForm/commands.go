package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/AgentForm/internal/api"
	"github.com/BTreeMap/AgentForm/internal/flow"
	"github.com/BTreeMap/AgentForm/internal/genai"
	"github.com/BTreeMap/AgentForm/internal/lockfile"
	"github.com/BTreeMap/AgentForm/internal/models"
	"github.com/BTreeMap/AgentForm/internal/promptgen"
	"github.com/BTreeMap/AgentForm/internal/store"
	"github.com/BTreeMap/AgentForm/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			if _, err := initLogger(cfg, false, cmd.ErrOrStderr()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.usesSQLite() {
				lock, err := lockfile.AcquireLock(cfg.StateDir, lockfile.WithOwner("serve "+cfg.Addr))
				if err != nil {
					return err
				}
				defer lock.Release()
			}

			var override *flow.Questionnaire
			if cfg.Questionnaire != "" {
				q, err := loadQuestionnaire(cfg, flow.Questionnaire{})
				if err != nil {
					return err
				}
				override = &q
			}

			slog.Info("serve: bootstrapping AgentForm", "addr", cfg.Addr, "state_dir", cfg.StateDir, "dsn_set", cfg.DBDSN != "", "model", cfg.Model)
			if err := api.Run(ctx, buildStoreOptions(cfg), buildGenAIOptions(cfg), buildAPIOptions(cfg, override)); err != nil {
				slog.Error("serve: AgentForm failed to run", "error", err)
				return err
			}
			slog.Info("serve: AgentForm exited successfully")
			return nil
		},
	}
}

func wizardCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Create an AI agent interactively and generate its system prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			closeLog, err := initLogger(cfg, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			q, err := loadQuestionnaire(cfg, flow.AgentWizard(promptgen.FrameworkNames()))
			if err != nil {
				return err
			}
			client, err := genai.NewClient(buildGenAIOptions(cfg)...)
			if err != nil {
				return fmt.Errorf("the wizard needs an OpenAI API key (--openai-api-key or OPENAI_API_KEY): %w", err)
			}
			st, err := store.Open(buildStoreOptions(cfg)...)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			proxy := promptgen.NewProxy(client, promptgen.WithRecorder(st))
			return runQuestionnaire(cmd, q, tui.WithGenerator(proxy), tui.WithRecorder(st))
		},
	}
}

func formCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Fill in the generic form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			closeLog, err := initLogger(cfg, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			q, err := loadQuestionnaire(cfg, flow.GenericForm())
			if err != nil {
				return err
			}
			st, err := store.Open(buildStoreOptions(cfg)...)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			return runQuestionnaire(cmd, q, tui.WithRecorder(st))
		},
	}
}

// runQuestionnaire runs the terminal wizard for q and prints the resulting
// submission once the program exits.
func runQuestionnaire(cmd *cobra.Command, q flow.Questionnaire, opts ...tui.Option) error {
	opts = append(opts, tui.WithContext(cmd.Context()))
	w, err := tui.NewWizard(q, opts...)
	if err != nil {
		return err
	}

	p := tea.NewProgram(w, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run wizard: %w", err)
	}

	if sub, ok := w.Submission(); ok {
		printSubmission(cmd.OutOrStdout(), sub)
	}
	return w.Err()
}

func printSubmission(out io.Writer, sub models.Submission) {
	fmt.Fprintf(out, "Submission %s recorded (%s, %d answers)\n", sub.ID, sub.Questionnaire, len(sub.Answers))
	if sub.GeneratedPrompt != "" {
		fmt.Fprintf(out, "\n%s\n", sub.GeneratedPrompt)
	}
}

func frameworksCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "frameworks",
		Short: "List the prompt frameworks the generator knows",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, promptgen.Frameworks())
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.AppendHeader(table.Row{"#", "Framework", "Components"})
			for i, row := range frameworkRows() {
				tw.AppendRow(table.Row{i + 1, row[0], row[1]})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func submissionsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool
	var questionnaire string
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List stored questionnaire submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			if _, err := initLogger(cfg, false, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if cfg.DBDSN == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "no --db-dsn configured; submissions are only kept in memory while a command runs")
			}
			return withStore(cfg, func(st store.Store) error {
				subs, err := st.GetSubmissions()
				if err != nil {
					return err
				}
				if questionnaire != "" {
					subs = filterSubmissions(subs, questionnaire)
				}
				if subs == nil {
					subs = []models.Submission{}
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, subs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"ID", "Questionnaire", "Answers", "Prompt", "Created"})
				for _, s := range subs {
					prompt := "-"
					if s.GeneratedPrompt != "" {
						prompt = fmt.Sprintf("%d chars", len(s.GeneratedPrompt))
					}
					tw.AppendRow(table.Row{s.ID, s.Questionnaire, len(s.Answers), prompt, s.CreatedAt.Format("2006-01-02 15:04:05")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.Flags().StringVar(&questionnaire, "questionnaire-name", "", "only list submissions of this questionnaire")
	cmd.AddCommand(receiptsCmd(v))
	return cmd
}

func receiptsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List prompt generation receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(v)
			if _, err := initLogger(cfg, false, cmd.ErrOrStderr()); err != nil {
				return err
			}
			return withStore(cfg, func(st store.Store) error {
				receipts, err := st.GetReceipts()
				if err != nil {
					return err
				}
				if receipts == nil {
					receipts = []models.GenerationReceipt{}
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, receipts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"ID", "Framework", "Agent", "Status", "Fragments", "Bytes", "Duration"})
				for _, r := range receipts {
					tw.AppendRow(table.Row{r.ID, r.Framework, r.AgentName, r.Status, r.Fragments, r.Bytes, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func withStore(cfg Config, fn func(store.Store) error) error {
	st, err := store.Open(buildStoreOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("withStore: failed to close store", "error", cerr)
		}
	}()
	return fn(st)
}

func filterSubmissions(subs []models.Submission, questionnaire string) []models.Submission {
	out := make([]models.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Questionnaire == questionnaire {
			out = append(out, s)
		}
	}
	return out
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
