package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BTreeMap/AgentForm/internal/models"
	"github.com/BTreeMap/AgentForm/internal/promptgen"
	"github.com/BTreeMap/AgentForm/internal/util"
)

// getPromptHandler streams a generated system prompt as plain text.
func (s *Server) getPromptHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.getPromptHandler: processing generation request", "method", r.Method, "path", r.URL.Path)

	var req models.GenerationRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		slog.Error("Server.getPromptHandler: failed to decode JSON", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to generate prompt")
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	stream, err := s.proxy.Generate(ctx, req)
	if err != nil {
		var missing *promptgen.MissingFieldError
		switch {
		case errors.As(err, &missing):
			slog.Warn("Server.getPromptHandler: missing field", "field", missing.Field)
			writeJSONError(w, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, models.ErrProviderFailure):
			slog.Error("Server.getPromptHandler: provider failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to generate prompt")
		case errors.Is(err, context.DeadlineExceeded):
			slog.Error("Server.getPromptHandler: generation timed out", "timeout", s.requestTimeout)
			writeJSONError(w, http.StatusInternalServerError, "Prompt generation timed out")
		default:
			slog.Error("Server.getPromptHandler: generation failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to generate prompt")
		}
		return
	}

	written := streamText(w, stream.All())
	slog.Info("Server.getPromptHandler: generation streamed", "framework", req.Framework, "bytes", written)
}

func (s *Server) frameworksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(promptgen.Frameworks()))
}

func (s *Server) questionnaireHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(s.questionnaire))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// submissionRequest is the body of POST /api/submissions.
type submissionRequest struct {
	Questionnaire   string          `json:"questionnaire"`
	Answers         []models.Answer `json:"answers"`
	GeneratedPrompt string          `json:"generatedPrompt,omitempty"`
}

func (s *Server) addSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	var body submissionRequest
	if err := decodeJSONBody(w, r, &body); err != nil {
		slog.Warn("Server.addSubmissionHandler: failed to decode JSON", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if strings.TrimSpace(body.Questionnaire) == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing required field: questionnaire")
		return
	}
	if body.Questionnaire == s.questionnaire.Name {
		known := make(map[string]struct{}, len(s.questionnaire.Questions))
		for _, q := range s.questionnaire.Questions {
			known[q.ID] = struct{}{}
		}
		for _, a := range body.Answers {
			if _, ok := known[a.QuestionID]; !ok {
				slog.Warn("Server.addSubmissionHandler: unknown question", "questionID", a.QuestionID)
				writeJSONError(w, http.StatusBadRequest, "Unknown question: "+a.QuestionID)
				return
			}
		}
	}

	sub := models.Submission{
		ID:              util.GenerateSubmissionID(),
		Questionnaire:   body.Questionnaire,
		Answers:         body.Answers,
		GeneratedPrompt: body.GeneratedPrompt,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.st.AddSubmission(sub); err != nil {
		slog.Error("Server.addSubmissionHandler: failed to store submission", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to record submission")
		return
	}
	slog.Info("Server.addSubmissionHandler: submission recorded", "id", sub.ID, "questionnaire", sub.Questionnaire, "answers", len(sub.Answers))
	writeJSONResponse(w, http.StatusCreated, models.Recorded(sub))
}

func (s *Server) listSubmissionsHandler(w http.ResponseWriter, r *http.Request) {
	subs, err := s.st.GetSubmissions()
	if err != nil {
		slog.Error("Server.listSubmissionsHandler: failed to fetch submissions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch submissions")
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(subs))
}

func (s *Server) getSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := s.st.GetSubmission(id)
	if errors.Is(err, models.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Submission not found")
		return
	}
	if err != nil {
		slog.Error("Server.getSubmissionHandler: failed to fetch submission", "error", err, "id", id)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch submission")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sub))
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.st.GetReceipts()
	if err != nil {
		slog.Error("Server.receiptsHandler: failed to fetch receipts", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch receipts")
		return
	}
	if receipts == nil {
		receipts = []models.GenerationReceipt{}
	}
	slog.Debug("Server.receiptsHandler: receipts fetched", "count", len(receipts))
	writeJSONResponse(w, http.StatusOK, models.Success(receipts))
}
