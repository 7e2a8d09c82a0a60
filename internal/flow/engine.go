// Package flow implements the question flow engine that drives a questionnaire.
//
// An Engine owns the state of one questionnaire session: the immutable question
// order, the current position and the recorded answers. All mutation goes through
// Engine methods. The engine does no locking; callers serialize access (a UI event
// loop dispatches one operation at a time).
package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/AgentForm/internal/models"
)

// Default interpolation settings used by the agent wizard.
const (
	// DefaultNameQuestion is the question whose answer fills label placeholders.
	DefaultNameQuestion = "agentName"
	// DefaultPlaceholder is the token replaced by the named answer in labels.
	DefaultPlaceholder = "[agentName]"
)

// Outcome tags the result of Advance.
type Outcome string

const (
	// OutcomeMoved means the position was updated (possibly unchanged at the last question).
	OutcomeMoved Outcome = "moved"
	// OutcomeBlocked means a required question has no answer; the position is unchanged.
	OutcomeBlocked Outcome = "blocked"
)

// BlockReasonValidation is the only reason Advance blocks.
const BlockReasonValidation = "validation"

// Transition is the result of Advance.
type Transition struct {
	Outcome  Outcome
	Position int
	Reason   string
}

// Blocked reports whether the transition was refused.
func (t Transition) Blocked() bool {
	return t.Outcome == OutcomeBlocked
}

// Err returns models.ErrValidationBlocked for a blocked transition, otherwise nil.
func (t Transition) Err() error {
	if t.Blocked() {
		return models.ErrValidationBlocked
	}
	return nil
}

// Opts holds engine configuration.
type Opts struct {
	NameQuestion string
	Placeholder  string
}

// Option configures an Engine.
type Option func(*Opts)

// WithNameQuestion sets the question whose answer is used for label interpolation.
func WithNameQuestion(id string) Option {
	return func(o *Opts) {
		o.NameQuestion = id
	}
}

// WithPlaceholder sets the token that ResolveLabel replaces.
func WithPlaceholder(token string) Option {
	return func(o *Opts) {
		o.Placeholder = token
	}
}

// Engine is the question flow state machine for one session.
type Engine struct {
	questions []models.Question
	index     map[string]int

	position int
	answers  map[string]models.Answer
	order    []string // answer insertion order, for stable snapshots

	nameQuestion string
	placeholder  string
	namedAnswer  string
}

// NewEngine creates an engine positioned at the first question. It fails with a
// ConfigError when the list is empty or contains duplicate or empty ids.
func NewEngine(questions []models.Question, opts ...Option) (*Engine, error) {
	cfg := Opts{
		NameQuestion: DefaultNameQuestion,
		Placeholder:  DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(questions) == 0 {
		slog.Error("Engine.NewEngine: empty question list")
		return nil, configErrorf("", "question list is empty")
	}

	index := make(map[string]int, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			slog.Error("Engine.NewEngine: question without id", "position", i)
			return nil, configErrorf("", "question at position %d has no id", i)
		}
		if prev, dup := index[q.ID]; dup {
			slog.Error("Engine.NewEngine: duplicate question id", "questionID", q.ID, "first", prev, "second", i)
			return nil, configErrorf(q.ID, "duplicate id at positions %d and %d", prev, i)
		}
		index[q.ID] = i
	}

	cp := cloneQuestions(questions)

	slog.Debug("Engine.NewEngine: created", "questions", len(cp), "nameQuestion", cfg.NameQuestion)
	return &Engine{
		questions:    cp,
		index:        index,
		answers:      make(map[string]models.Answer),
		nameQuestion: cfg.NameQuestion,
		placeholder:  cfg.Placeholder,
	}, nil
}

// NewEngineFor creates an engine for a questionnaire, using its interpolation settings.
func NewEngineFor(q Questionnaire) (*Engine, error) {
	var opts []Option
	if q.NameQuestion != "" {
		opts = append(opts, WithNameQuestion(q.NameQuestion))
	}
	if q.Placeholder != "" {
		opts = append(opts, WithPlaceholder(q.Placeholder))
	}
	return NewEngine(q.Questions, opts...)
}

// Len returns the number of questions.
func (e *Engine) Len() int {
	return len(e.questions)
}

// Position returns the index of the current question.
func (e *Engine) Position() int {
	return e.position
}

// IsFirst reports whether the current question is the first one.
func (e *Engine) IsFirst() bool {
	return e.position == 0
}

// IsLast reports whether the current question is the last one.
func (e *Engine) IsLast() bool {
	return e.position == len(e.questions)-1
}

// Questions returns a deep copy of the question order.
func (e *Engine) Questions() []models.Question {
	return cloneQuestions(e.questions)
}

func cloneQuestions(questions []models.Question) []models.Question {
	cp := make([]models.Question, len(questions))
	for i, q := range questions {
		cp[i] = q.Clone()
	}
	return cp
}

// Question returns the definition with the given id.
func (e *Engine) Question(id string) (models.Question, bool) {
	i, ok := e.index[id]
	if !ok {
		return models.Question{}, false
	}
	return e.questions[i].Clone(), true
}

// CurrentQuestion returns a copy of the question at the current position.
func (e *Engine) CurrentQuestion() models.Question {
	return e.questions[e.position].Clone()
}

// CurrentLabel returns the current question's label with placeholders resolved.
func (e *Engine) CurrentLabel() string {
	return e.ResolveLabel(e.questions[e.position].Label)
}

// CurrentAnswer returns the answer recorded for the current question.
func (e *Engine) CurrentAnswer() (models.Answer, bool) {
	return e.Answer(e.questions[e.position].ID)
}

// Answer returns the answer recorded for a question id.
func (e *Engine) Answer(questionID string) (models.Answer, bool) {
	a, ok := e.answers[questionID]
	return a, ok
}

// AllAnswers returns a snapshot of every recorded answer in first-recorded order.
func (e *Engine) AllAnswers() []models.Answer {
	out := make([]models.Answer, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.answers[id])
	}
	return out
}

// SetAnswer records value for questionID, replacing any previous answer. No
// validation happens here; Advance enforces the required gate. Any answer on the
// name question replaces the label interpolation source; non-Text values clear it.
func (e *Engine) SetAnswer(questionID string, value models.Value) {
	if _, exists := e.answers[questionID]; !exists {
		e.order = append(e.order, questionID)
	}
	e.answers[questionID] = models.Answer{QuestionID: questionID, Value: value}

	if questionID == e.nameQuestion {
		name, _ := value.Text()
		e.namedAnswer = name
	}
}

// NamedAnswer returns the current interpolation source.
func (e *Engine) NamedAnswer() string {
	return e.namedAnswer
}

// ResolveLabel replaces every placeholder token in text with the named answer.
// The text is returned unchanged while no name has been given.
func (e *Engine) ResolveLabel(text string) string {
	if e.namedAnswer == "" || e.placeholder == "" {
		return text
	}
	return strings.ReplaceAll(text, e.placeholder, e.namedAnswer)
}

// Advance moves to the next question. A required question without a usable
// answer blocks the move. A branch keyed by the literal Text answer takes
// priority over sequential order; a branch to an unknown id is a ConfigError.
// Advancing from the last question leaves the position unchanged.
func (e *Engine) Advance() (Transition, error) {
	q := e.questions[e.position]
	answer, answered := e.answers[q.ID]

	if q.Required && (!answered || answer.Value.IsEmpty()) {
		slog.Debug("Engine.Advance: blocked on required question", "questionID", q.ID, "position", e.position)
		return Transition{Outcome: OutcomeBlocked, Position: e.position, Reason: BlockReasonValidation}, nil
	}

	if len(q.BranchMap) > 0 && answered {
		if literal, ok := answer.Value.Text(); ok {
			if targetID, hit := q.BranchMap[literal]; hit {
				target, exists := e.index[targetID]
				if !exists {
					slog.Error("Engine.Advance: branch target does not exist", "questionID", q.ID, "answer", literal, "target", targetID)
					return Transition{}, configErrorf(q.ID, "branch for answer %q targets unknown question %q", literal, targetID)
				}
				slog.Debug("Engine.Advance: branching", "from", q.ID, "to", targetID)
				e.position = target
				return Transition{Outcome: OutcomeMoved, Position: e.position}, nil
			}
		}
	}

	if e.position < len(e.questions)-1 {
		e.position++
	}
	slog.Debug("Engine.Advance: moved", "from", q.ID, "position", e.position)
	return Transition{Outcome: OutcomeMoved, Position: e.position}, nil
}

// Retreat moves to the previous question; a no-op at the first question.
func (e *Engine) Retreat() {
	if e.position > 0 {
		e.position--
	}
	slog.Debug("Engine.Retreat: moved", "position", e.position)
}

// JumpTo moves to the question with the given id.
func (e *Engine) JumpTo(questionID string) error {
	i, ok := e.index[questionID]
	if !ok {
		slog.Warn("Engine.JumpTo: unknown question", "questionID", questionID)
		return fmt.Errorf("%w: %s", models.ErrNotFound, questionID)
	}
	e.position = i
	return nil
}

// Reset returns to the first question and clears every answer.
func (e *Engine) Reset() {
	e.position = 0
	e.answers = make(map[string]models.Answer)
	e.order = nil
	e.namedAnswer = ""
	slog.Debug("Engine.Reset: session cleared")
}
