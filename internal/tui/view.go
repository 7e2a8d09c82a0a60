package tui

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/AgentForm/internal/flow"
	"github.com/BTreeMap/AgentForm/internal/models"
)

func (w *Wizard) View() string {
	if w.finished {
		return w.viewSummary()
	}
	return w.viewQuestion()
}

func (w *Wizard) viewQuestion() string {
	q := w.engine.CurrentQuestion()
	var b strings.Builder

	b.WriteString(titleStyle.Render("AgentForm"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s  %d/%d", w.questionnaire, w.engine.Position()+1, w.engine.Len())))
	b.WriteString("\n\n")

	label := w.engine.CurrentLabel()
	if label == "" {
		label = "Welcome! Press enter to begin."
	}
	b.WriteString(labelStyle.Render(label))
	b.WriteString("\n\n")

	switch q.Kind {
	case models.KindText, models.KindFileList:
		b.WriteString(w.input.View())
		b.WriteString("\n")
	case models.KindParagraph:
		b.WriteString(w.area.View())
		b.WriteString("\n")
	case models.KindChoice, models.KindColor, models.KindKeyboardChoice:
		b.WriteString(w.viewChoices(q))
	case models.KindLoading:
		b.WriteString(w.viewGeneration())
	}

	if w.warning != "" {
		b.WriteString("\n" + warningStyle.Render(w.warning) + "\n")
	}
	if w.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+w.err.Error()) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(w.help(q)))
	return b.String()
}

func (w *Wizard) viewChoices(q models.Question) string {
	var b strings.Builder
	for i, choice := range q.Choices {
		text := choice
		if q.Kind == models.KindColor {
			text = swatch(choice)
		}
		if q.Kind == models.KindKeyboardChoice {
			text = fmt.Sprintf("%d. %s", i+1, text)
		}
		if i == w.cursor {
			b.WriteString(selectedStyle.Render("▶ " + text))
		} else {
			b.WriteString("  " + text)
		}
		if d := q.Description(i); d != "" {
			b.WriteString("\n    " + dimStyle.Render(d))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (w *Wizard) viewGeneration() string {
	var b strings.Builder
	switch {
	case w.generating:
		b.WriteString(w.spin.View() + " Generating system prompt...\n")
	case w.genErr != nil:
		b.WriteString(errorStyle.Render("Generation failed: "+w.genErr.Error()) + "\n")
	default:
		b.WriteString(doneStyle.Render("✓ System prompt ready") + "\n")
	}
	if w.generated.Len() > 0 {
		box := promptBoxStyle
		if w.width > 4 {
			box = box.Width(w.width - 4)
		}
		b.WriteString(box.Render(w.generated.String()) + "\n")
	}
	return b.String()
}

func (w *Wizard) help(q models.Question) string {
	switch {
	case q.Kind == models.KindParagraph:
		return helpLine(w.keys.Next, w.keys.Newline, w.keys.Back, w.keys.Quit)
	case q.Kind.IsChoice():
		if q.Kind == models.KindKeyboardChoice {
			return helpLine(w.keys.Up, w.keys.Down, w.keys.Next, w.keys.Back, w.keys.Quit) + "  [1-9] select"
		}
		return helpLine(w.keys.Up, w.keys.Down, w.keys.Next, w.keys.Back, w.keys.Quit)
	default:
		return helpLine(w.keys.Next, w.keys.Back, w.keys.Quit)
	}
}

func (w *Wizard) viewSummary() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("All done!") + "\n\n")

	if w.questionnaire == flow.QuestionnaireAgentWizard {
		s := w.engine.Summary()
		rows := [][2]string{
			{"Name", s.Name},
			{"Purpose", s.Purpose},
			{"Users", s.Users},
			{"Style", s.Style},
			{"Framework", s.Framework},
			{"Plan", s.Plan},
		}
		for _, r := range rows {
			if r[1] != "" {
				b.WriteString(fmt.Sprintf("%-10s %s\n", r[0]+":", r[1]))
			}
		}
		if s.CustomKnowledge {
			b.WriteString(fmt.Sprintf("%-10s %d file(s)\n", "Knowledge:", s.Files))
		}
	} else {
		for _, a := range w.engine.AllAnswers() {
			q, _ := w.engine.Question(a.QuestionID)
			label := w.engine.ResolveLabel(q.Label)
			if label == "" {
				label = a.QuestionID
			}
			b.WriteString(labelStyle.Render(label) + "\n  " + a.Value.String() + "\n")
		}
	}

	if w.submission != nil {
		b.WriteString("\n" + dimStyle.Render("Submission "+w.submission.ID))
	}
	if w.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+w.err.Error()))
	}
	b.WriteString("\n\n" + helpStyle.Render("[enter] exit"))
	return b.String()
}
