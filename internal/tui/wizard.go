// Package tui renders a questionnaire in the terminal with Bubble Tea.
//
// The Wizard is a thin presentation layer over flow.Engine: every edit is
// forwarded to Engine.SetAnswer, navigation goes through Advance and Retreat,
// and the visible question only changes after the engine reports a move.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BTreeMap/AgentForm/internal/flow"
	"github.com/BTreeMap/AgentForm/internal/models"
	"github.com/BTreeMap/AgentForm/internal/promptgen"
	"github.com/BTreeMap/AgentForm/internal/util"
)

// RequiredWarning is shown when Advance blocks on an unanswered question.
const RequiredWarning = "This question is required"

// ErrNoGenerator is reported on the loading question when no generator is configured.
var ErrNoGenerator = errors.New("no prompt generator configured")

// Generator starts a prompt generation. promptgen.Proxy implements it.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*promptgen.Stream, error)
}

// SubmissionRecorder stores completed questionnaires. store.Store implements it.
type SubmissionRecorder interface {
	AddSubmission(s models.Submission) error
}

// Opts holds wizard configuration.
type Opts struct {
	Generator Generator
	Recorder  SubmissionRecorder
	Context   context.Context
}

// Option configures a Wizard.
type Option func(*Opts)

// WithGenerator enables prompt generation on loading questions.
func WithGenerator(g Generator) Option {
	return func(o *Opts) {
		o.Generator = g
	}
}

// WithRecorder stores a submission when the questionnaire is completed.
func WithRecorder(r SubmissionRecorder) Option {
	return func(o *Opts) {
		o.Recorder = r
	}
}

// WithContext sets the parent context of generations.
func WithContext(ctx context.Context) Option {
	return func(o *Opts) {
		o.Context = ctx
	}
}

type streamStartedMsg struct {
	gen    int
	stream *promptgen.Stream
	err    error
}

type fragmentMsg struct {
	gen    int
	stream *promptgen.Stream
	text   string
}

type streamEndedMsg struct {
	gen int
}

// Wizard is the Bubble Tea model for one questionnaire session.
type Wizard struct {
	engine        *flow.Engine
	questionnaire string
	generator     Generator
	recorder      SubmissionRecorder
	ctx           context.Context
	keys          keyMap

	input   textinput.Model
	area    textarea.Model
	spin    spinner.Model
	cursor  int
	warning string
	err     error

	genID      int
	generating bool
	cancel     context.CancelFunc
	generated  strings.Builder
	genErr     error

	finished   bool
	submission *models.Submission
	width      int
}

// NewWizard builds a wizard over a fresh engine for q.
func NewWizard(q flow.Questionnaire, opts ...Option) (*Wizard, error) {
	cfg := Opts{Context: context.Background()}
	for _, opt := range opts {
		opt(&cfg)
	}
	engine, err := flow.NewEngineFor(q)
	if err != nil {
		return nil, err
	}

	input := textinput.New()
	input.Width = 60
	input.Prompt = "> "

	area := textarea.New()
	area.SetWidth(72)
	area.SetHeight(5)
	area.CharLimit = 0
	area.ShowLineNumbers = false
	area.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j"))

	w := &Wizard{
		engine:        engine,
		questionnaire: q.Name,
		generator:     cfg.Generator,
		recorder:      cfg.Recorder,
		ctx:           cfg.Context,
		keys:          defaultKeyMap(),
		input:         input,
		area:          area,
		spin:          spinner.New(spinner.WithSpinner(spinner.Dot)),
		cursor:        -1,
	}
	return w, nil
}

// Engine exposes the underlying flow engine.
func (w *Wizard) Engine() *flow.Engine {
	return w.engine
}

// Submission returns the recorded submission once the questionnaire is complete.
func (w *Wizard) Submission() (models.Submission, bool) {
	if w.submission == nil {
		return models.Submission{}, false
	}
	return *w.submission, true
}

// Err returns the last configuration error reported by the engine.
func (w *Wizard) Err() error {
	return w.err
}

func (w *Wizard) Init() tea.Cmd {
	return w.enterQuestion()
}

func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return w.handleKey(msg)

	case tea.WindowSizeMsg:
		w.width = msg.Width
		return w, nil

	case streamStartedMsg:
		return w, w.handleStreamStarted(msg)

	case fragmentMsg:
		if msg.gen != w.genID {
			msg.stream.Close()
			return w, nil
		}
		w.generated.WriteString(msg.text)
		return w, readNext(msg.gen, msg.stream)

	case streamEndedMsg:
		if msg.gen != w.genID {
			return w, nil
		}
		w.endGeneration()
		w.engine.SetAnswer(w.engine.CurrentQuestion().ID, models.Text(w.generated.String()))
		slog.Debug("Wizard.Update: generation finished", "bytes", w.generated.Len())
		return w, nil

	case spinner.TickMsg:
		if !w.generating {
			return w, nil
		}
		var cmd tea.Cmd
		w.spin, cmd = w.spin.Update(msg)
		return w, cmd
	}

	return w, w.updateInput(msg)
}

func (w *Wizard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, w.keys.Quit) {
		w.stopGeneration()
		return w, tea.Quit
	}
	if w.finished {
		switch msg.String() {
		case "enter", "q", "esc":
			return w, tea.Quit
		}
		return w, nil
	}

	switch {
	case key.Matches(msg, w.keys.Next):
		return w, w.next()
	case key.Matches(msg, w.keys.Back):
		return w, w.back()
	}

	q := w.engine.CurrentQuestion()
	switch {
	case q.Kind.IsChoice():
		w.handleChoiceKey(msg, q)
		return w, nil
	case q.Kind.IsText(), q.Kind == models.KindFileList:
		cmd := w.updateInput(msg)
		w.syncAnswer()
		return w, cmd
	}
	return w, nil
}

func (w *Wizard) handleChoiceKey(msg tea.KeyMsg, q models.Question) {
	if len(q.Choices) == 0 {
		return
	}
	switch {
	case key.Matches(msg, w.keys.Up):
		if w.cursor > 0 {
			w.selectChoice(q, w.cursor-1)
		} else if w.cursor < 0 {
			w.selectChoice(q, 0)
		}
	case key.Matches(msg, w.keys.Down):
		if w.cursor < len(q.Choices)-1 {
			w.selectChoice(q, w.cursor+1)
		}
	default:
		if q.Kind != models.KindKeyboardChoice {
			return
		}
		n, err := strconv.Atoi(msg.String())
		if err == nil && n >= 1 && n <= len(q.Choices) {
			w.selectChoice(q, n-1)
		}
	}
}

func (w *Wizard) selectChoice(q models.Question, i int) {
	w.cursor = i
	w.warning = ""
	w.engine.SetAnswer(q.ID, models.Text(q.Choices[i]))
}

// updateInput forwards msg to whichever input the current question uses.
func (w *Wizard) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch w.engine.CurrentQuestion().Kind {
	case models.KindText, models.KindFileList:
		w.input, cmd = w.input.Update(msg)
	case models.KindParagraph:
		w.area, cmd = w.area.Update(msg)
	}
	return cmd
}

// syncAnswer records the live input value as the current answer.
func (w *Wizard) syncAnswer() {
	q := w.engine.CurrentQuestion()
	switch q.Kind {
	case models.KindText:
		w.engine.SetAnswer(q.ID, models.Text(w.input.Value()))
	case models.KindParagraph:
		w.engine.SetAnswer(q.ID, models.Text(w.area.Value()))
	case models.KindFileList:
		w.engine.SetAnswer(q.ID, models.MultiText(splitPaths(w.input.Value())))
	default:
		return
	}
	w.warning = ""
}

func (w *Wizard) next() tea.Cmd {
	q := w.engine.CurrentQuestion()
	w.warning = ""

	switch {
	case q.Kind.IsText():
		w.syncAnswer()
		value, _ := w.engine.CurrentAnswer()
		text, _ := value.Value.Text()
		if res := w.engine.ValidateText(q.ID, text); !res.OK() {
			w.warning = res.Message
			return nil
		}
	case q.Kind == models.KindLoading && w.generating:
		return nil
	}

	wasLast := w.engine.IsLast()
	t, err := w.engine.Advance()
	if err != nil {
		slog.Error("Wizard.next: advance failed", "questionID", q.ID, "error", err)
		w.err = err
		return nil
	}
	if t.Blocked() {
		w.warning = RequiredWarning
		return nil
	}
	if wasLast {
		w.finish()
		return nil
	}
	return w.enterQuestion()
}

func (w *Wizard) back() tea.Cmd {
	if w.generating {
		w.stopGeneration()
	}
	if w.engine.IsFirst() {
		return nil
	}
	w.warning = ""
	w.engine.Retreat()
	return w.enterQuestion()
}

// enterQuestion loads the input state for the question the engine is now on.
func (w *Wizard) enterQuestion() tea.Cmd {
	q := w.engine.CurrentQuestion()
	w.input.Blur()
	w.area.Blur()
	w.cursor = -1

	answer, answered := w.engine.CurrentAnswer()
	text, _ := answer.Value.Text()

	switch q.Kind {
	case models.KindText:
		w.input.Placeholder = q.Placeholder
		w.input.SetValue(text)
		return w.input.Focus()
	case models.KindFileList:
		w.input.Placeholder = q.Placeholder + " (comma-separated paths)"
		w.input.SetValue(strings.Join(answer.Value.Items(), ", "))
		return w.input.Focus()
	case models.KindParagraph:
		w.area.Placeholder = q.Placeholder
		w.area.SetValue(text)
		return w.area.Focus()
	case models.KindChoice, models.KindColor, models.KindKeyboardChoice:
		w.cursor = q.ChoiceIndex(text)
	case models.KindLoading:
		if !answered {
			return w.startGeneration()
		}
	}
	return nil
}

func (w *Wizard) startGeneration() tea.Cmd {
	w.generated.Reset()
	w.genErr = nil
	if w.generator == nil {
		w.genErr = ErrNoGenerator
		return nil
	}

	req := w.engine.GenerationRequest()
	w.genID++
	w.generating = true
	ctx, cancel := context.WithCancel(w.ctx)
	w.cancel = cancel

	id, gen := w.genID, w.generator
	slog.Debug("Wizard.startGeneration: starting", "framework", req.Framework, "agentName", req.AgentName)
	return tea.Batch(w.spin.Tick, func() tea.Msg {
		stream, err := gen.Generate(ctx, req)
		return streamStartedMsg{gen: id, stream: stream, err: err}
	})
}

func (w *Wizard) handleStreamStarted(msg streamStartedMsg) tea.Cmd {
	if msg.gen != w.genID {
		if msg.stream != nil {
			msg.stream.Close()
		}
		return nil
	}
	if msg.err != nil {
		slog.Error("Wizard.handleStreamStarted: generation failed", "error", msg.err)
		w.endGeneration()
		w.genErr = msg.err
		return nil
	}
	return readNext(msg.gen, msg.stream)
}

func readNext(gen int, stream *promptgen.Stream) tea.Cmd {
	return func() tea.Msg {
		if stream.Next() {
			return fragmentMsg{gen: gen, stream: stream, text: stream.Current()}
		}
		stream.Close()
		return streamEndedMsg{gen: gen}
	}
}

func (w *Wizard) endGeneration() {
	w.generating = false
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// stopGeneration abandons the running generation; late messages are ignored.
func (w *Wizard) stopGeneration() {
	if !w.generating {
		return
	}
	slog.Debug("Wizard.stopGeneration: abandoning generation", "bytes", w.generated.Len())
	w.genID++
	w.endGeneration()
}

func (w *Wizard) finish() {
	w.finished = true
	sub := models.Submission{
		ID:              util.GenerateSubmissionID(),
		Questionnaire:   w.questionnaire,
		Answers:         w.engine.AllAnswers(),
		GeneratedPrompt: w.generated.String(),
		CreatedAt:       time.Now().UTC(),
	}
	w.submission = &sub
	if w.recorder == nil {
		return
	}
	if err := w.recorder.AddSubmission(sub); err != nil {
		slog.Error("Wizard.finish: failed to record submission", "id", sub.ID, "error", err)
		w.err = fmt.Errorf("record submission: %w", err)
		return
	}
	slog.Info("Wizard.finish: submission recorded", "id", sub.ID, "questionnaire", sub.Questionnaire)
}

// splitPaths turns comma-separated input into a list of non-empty paths.
func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
