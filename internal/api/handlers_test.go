package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/AgentForm/internal/flow"
	"github.com/BTreeMap/AgentForm/internal/models"
	"github.com/BTreeMap/AgentForm/internal/promptgen"
	"github.com/BTreeMap/AgentForm/internal/store"
	"github.com/BTreeMap/AgentForm/internal/testutil"
)

func newTestServer(t *testing.T, provider *testutil.Provider, opts ...Option) (*httptest.Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	proxy := promptgen.NewProxy(provider, promptgen.WithRecorder(st))
	ts := httptest.NewServer(NewServer(proxy, st, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

const validBody = `{"framework":"CARE Framework","agentName":"Ada","agentPurpose":"help","targetUsers":"devs"}`

func TestGetPrompt_StreamsPlainText(t *testing.T) {
	provider := testutil.NewProvider("Hello", " world")
	ts, st := newTestServer(t, provider)

	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(body))

	receipts, err := st.GetReceipts()
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, models.GenerationCompleted, receipts[0].Status)
}

func TestGetPrompt_MissingField(t *testing.T) {
	provider := testutil.NewProvider("x")
	ts, _ := newTestServer(t, provider)

	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", `{"framework":"CARE Framework","agentName":"","agentPurpose":"help","targetUsers":"devs"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	out := testutil.DecodeJSON(t, resp.Body)
	assert.Equal(t, "Missing required fields", out["error"])
	assert.Equal(t, 0, provider.Calls())
}

func TestGetPrompt_MalformedBody(t *testing.T) {
	provider := testutil.NewProvider()
	ts, _ := newTestServer(t, provider)

	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", `{"framework":`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := testutil.DecodeJSON(t, resp.Body)
	assert.NotEmpty(t, out["error"])
	assert.Equal(t, 0, provider.Calls())
}

func TestGetPrompt_ProviderFailureBeforeStreaming(t *testing.T) {
	ts, st := newTestServer(t, &testutil.Provider{OpenErr: errors.New("401 unauthorized")})

	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", validBody)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := testutil.DecodeJSON(t, resp.Body)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "Failed to generate prompt", out["error"])

	receipts, _ := st.GetReceipts()
	require.Len(t, receipts, 1)
	assert.Equal(t, models.GenerationFailed, receipts[0].Status)
}

func TestGetPrompt_MidStreamFailure(t *testing.T) {
	ts, _ := newTestServer(t, &testutil.Provider{
		Fragments: []string{"partial", "lost"},
		FailAfter: 1,
		FailErr:   errors.New("reset"),
	})

	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "partial"+promptgen.ErrorNotice, string(body))
}

func TestGetPrompt_UnknownFrameworkSucceeds(t *testing.T) {
	ts, _ := newTestServer(t, testutil.NewProvider("ok"))

	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", `{"framework":"Mystery","agentName":"Ada","agentPurpose":"help","targetUsers":"devs"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetPrompt_RequestTimeout(t *testing.T) {
	ts, _ := newTestServer(t, &testutil.Provider{Block: true}, WithRequestTimeout(50*time.Millisecond))

	start := time.Now()
	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", validBody)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Prompt generation timed out", testutil.DecodeJSON(t, resp.Body)["error"])
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGetPrompt_TimeoutMidStreamEndsWithNotice(t *testing.T) {
	ts, st := newTestServer(t, &testutil.Provider{Endless: true}, WithRequestTimeout(100*time.Millisecond))

	resp := testutil.PostJSON(t, ts.URL+"/api/getPrompt", validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), testutil.EndlessFragment))
	assert.True(t, strings.HasSuffix(string(body), promptgen.ErrorNotice), "truncated body must end with the error notice")

	require.Eventually(t, func() bool {
		receipts, _ := st.GetReceipts()
		return len(receipts) == 1
	}, 2*time.Second, 10*time.Millisecond)
	receipts, _ := st.GetReceipts()
	assert.Equal(t, models.GenerationInterrupted, receipts[0].Status)
}

func TestGetPrompt_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, testutil.NewProvider())

	resp, err := http.Get(ts.URL + "/api/getPrompt")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, resp.Header.Values("Allow"), http.MethodPost)
}

func TestFrameworksHandler(t *testing.T) {
	ts, _ := newTestServer(t, testutil.NewProvider())

	resp, err := http.Get(ts.URL + "/api/frameworks")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Status string                `json:"status"`
		Result []promptgen.Framework `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Result, 6)
	assert.Equal(t, "CARE Framework", out.Result[0].Name)
}

func TestQuestionnaireHandler(t *testing.T) {
	custom := flow.GenericForm()
	ts, _ := newTestServer(t, testutil.NewProvider(), WithQuestionnaire(custom))

	resp, err := http.Get(ts.URL + "/api/questionnaire")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Result flow.Questionnaire `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, flow.QuestionnaireGenericForm, out.Result.Name)
	assert.Len(t, out.Result.Questions, len(custom.Questions))
}

func TestSubmissions(t *testing.T) {
	ts, st := newTestServer(t, testutil.NewProvider())

	body := `{"questionnaire":"agent-wizard","answers":[{"questionId":"agentName","answer":"Ada"},{"questionId":"fileUpload","answer":["a.pdf"]}]}`
	resp := testutil.PostJSON(t, ts.URL+"/api/submissions", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := testutil.DecodeJSON(t, resp.Body)
	assert.Equal(t, "recorded", out["status"])
	id := out["result"].(map[string]any)["id"].(string)
	assert.True(t, strings.HasPrefix(id, "s_"))

	subs, err := st.GetSubmissions()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"a.pdf"}, subs[0].Answers[1].Value.Items())

	listResp, err := http.Get(ts.URL + "/api/submissions")
	require.NoError(t, err)
	defer listResp.Body.Close()
	list := testutil.DecodeJSON(t, listResp.Body)
	assert.Len(t, list["result"], 1)

	oneResp, err := http.Get(ts.URL + "/api/submissions/" + id)
	require.NoError(t, err)
	defer oneResp.Body.Close()
	assert.Equal(t, http.StatusOK, oneResp.StatusCode)

	missingResp, err := http.Get(ts.URL + "/api/submissions/s_missing")
	require.NoError(t, err)
	defer missingResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)
}

func TestSubmissions_Rejected(t *testing.T) {
	ts, _ := newTestServer(t, testutil.NewProvider())

	tests := map[string]string{
		"malformed":        `{"questionnaire":`,
		"no questionnaire": `{"answers":[]}`,
		"unknown question": `{"questionnaire":"agent-wizard","answers":[{"questionId":"nope","answer":"x"}]}`,
		"bad answer shape": `{"questionnaire":"agent-wizard","answers":[{"questionId":"agentName","answer":42}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp := testutil.PostJSON(t, ts.URL+"/api/submissions", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestReceiptsAndHealth(t *testing.T) {
	ts, _ := newTestServer(t, testutil.NewProvider("x"))

	resp, err := http.Get(ts.URL + "/api/receipts")
	require.NoError(t, err)
	defer resp.Body.Close()
	out := testutil.DecodeJSON(t, resp.Body)
	assert.Equal(t, []any{}, out["result"])

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
	hb, _ := io.ReadAll(health.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(hb))
}

func TestWriteJSONResponse_Fallback(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONResponse(rec, http.StatusOK, map[string]any{"bad": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, bytes.Equal(fallbackErrorResponse, rec.Body.Bytes()))
}
