package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/nutrisense/internal/analysis"
	"github.com/vbonduro/nutrisense/internal/domain"
	"github.com/vbonduro/nutrisense/internal/llm"
	"github.com/vbonduro/nutrisense/internal/web"
)

var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0], b[1], b[2], b[3] = 0xFF, 0xD8, 0xFF, 0xE0
	return b
}()

// recorded is what recordingAnalyzer saw on its last call.
type recorded struct {
	calls int
	text  string
	mime  string
	image []byte
	prof  domain.HealthProfile
	chat  domain.ChatExchange
}

// recordingAnalyzer implements web.Analyzer and records how it was called.
type recordingAnalyzer struct {
	mu      sync.Mutex
	rec     recorded
	verdict domain.ProductVerdict
	answer  string
}

func (a *recordingAnalyzer) AnalyzeText(_ context.Context, text string, profile domain.HealthProfile) domain.ProductVerdict {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec.calls++
	a.rec.text, a.rec.prof = text, profile
	return a.verdict
}

func (a *recordingAnalyzer) AnalyzeImage(_ context.Context, image []byte, mimeType string, profile domain.HealthProfile) domain.ProductVerdict {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec.calls++
	a.rec.image, a.rec.mime, a.rec.prof = image, mimeType, profile
	return a.verdict
}

func (a *recordingAnalyzer) AskFollowup(_ context.Context, ex domain.ChatExchange) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec.calls++
	a.rec.chat = ex
	return a.answer
}

func (a *recordingAnalyzer) last() recorded {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec
}

func (a *recordingAnalyzer) Calls() int { return a.last().calls }

func sampleVerdict() domain.ProductVerdict {
	alt := "Plain oats"
	return domain.ProductVerdict{
		OverallRisk: "Avoid",
		Summary:     "Too much sugar.",
		IngredientsBreakdown: []domain.IngredientAnalysis{
			{Name: "Sugar", Function: "Sweetener", HealthImpact: "Raises glucose", RiskLevel: "High", Reasoning: "Simple carb"},
		},
		Alternatives: &alt,
	}
}

func newTestServer(t *testing.T, a web.Analyzer, opts web.Options) *httptest.Server {
	t.Helper()
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	if opts.ProjectName == "" {
		opts.ProjectName = "NutriSense AI"
	}
	srv := httptest.NewServer(web.NewServer(a, opts, slog.Default()))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func postImage(t *testing.T, url, contentType string, data []byte, profile string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="label.img"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	if profile != "" {
		require.NoError(t, mw.WriteField("profile", profile))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t, &recordingAnalyzer{}, web.Options{Version: "1.2.3"})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "NutriSense AI Backend is Ready", body["message"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &recordingAnalyzer{}, web.Options{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownPathIs404(t *testing.T) {
	srv := newTestServer(t, &recordingAnalyzer{}, web.Options{})

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDPropagated(t *testing.T) {
	srv := newTestServer(t, &recordingAnalyzer{}, web.Options{})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestAnalyzeText(t *testing.T) {
	a := &recordingAnalyzer{verdict: sampleVerdict()}
	srv := newTestServer(t, a, web.Options{})

	resp := postJSON(t, srv.URL+"/api/v1/analyze", `{"text": "Sugar, Maltodextrin, Salt", "profile": "Diabetic"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	got := decode[domain.ProductVerdict](t, resp)
	assert.Equal(t, sampleVerdict(), got)
	assert.Equal(t, "Sugar, Maltodextrin, Salt", a.last().text)
	assert.Equal(t, domain.ProfileDiabetic, a.last().prof)
}

func TestAnalyzeTextDefaultProfile(t *testing.T) {
	a := &recordingAnalyzer{verdict: sampleVerdict()}
	srv := newTestServer(t, a, web.Options{})

	resp := postJSON(t, srv.URL+"/api/v1/analyze", `{"text": "Water"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.ProfileGeneralHealthy, a.last().prof)
}

func TestAnalyzeTextRejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "empty text", body: `{"text": "", "profile": "Vegan"}`, detail: "Text required"},
		{name: "blank text", body: `{"text": "   "}`, detail: "Text required"},
		{name: "missing text", body: `{"profile": "Vegan"}`, detail: "Text required"},
		{name: "malformed json", body: `{"text": `, detail: "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &recordingAnalyzer{}
			srv := newTestServer(t, a, web.Options{})

			resp := postJSON(t, srv.URL+"/api/v1/analyze", tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.detail, decode[map[string]string](t, resp)["detail"])
			assert.Zero(t, a.Calls())
		})
	}
}

func TestAnalyzeTextWrongMethod(t *testing.T) {
	srv := newTestServer(t, &recordingAnalyzer{}, web.Options{})

	resp, err := http.Get(srv.URL + "/api/v1/analyze")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAnalyzeImageAllowedTypes(t *testing.T) {
	for _, mimeType := range []string{"image/jpeg", "image/png", "image/webp"} {
		t.Run(mimeType, func(t *testing.T) {
			a := &recordingAnalyzer{verdict: sampleVerdict()}
			srv := newTestServer(t, a, web.Options{})

			resp := postImage(t, srv.URL+"/api/v1/analyze-image", mimeType, minimalJPEG, "Hypertension")

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, 1, a.Calls())
			assert.Equal(t, mimeType, a.last().mime)
			assert.Equal(t, minimalJPEG, a.last().image)
			assert.Equal(t, domain.ProfileHypertension, a.last().prof)
		})
	}
}

func TestAnalyzeImageRejectedTypes(t *testing.T) {
	for _, mimeType := range []string{"image/gif", "application/pdf", "text/plain", "image/bmp"} {
		t.Run(mimeType, func(t *testing.T) {
			a := &recordingAnalyzer{}
			srv := newTestServer(t, a, web.Options{})

			resp := postImage(t, srv.URL+"/api/v1/analyze-image", mimeType, minimalJPEG, "")

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Invalid image format", decode[map[string]string](t, resp)["detail"])
			assert.Zero(t, a.Calls())
		})
	}
}

func TestAnalyzeImageSniffsGenericType(t *testing.T) {
	a := &recordingAnalyzer{verdict: sampleVerdict()}
	srv := newTestServer(t, a, web.Options{})

	resp := postImage(t, srv.URL+"/api/v1/analyze-image", "application/octet-stream", minimalJPEG, "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", a.last().mime)
	assert.Equal(t, domain.ProfileGeneralHealthy, a.last().prof)
}

func TestAnalyzeImageMissingFile(t *testing.T) {
	a := &recordingAnalyzer{}
	srv := newTestServer(t, a, web.Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("profile", "Vegan"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/analyze-image", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, a.Calls())
}

func TestAnalyzeImageEmptyFile(t *testing.T) {
	a := &recordingAnalyzer{}
	srv := newTestServer(t, a, web.Options{})

	resp := postImage(t, srv.URL+"/api/v1/analyze-image", "image/png", []byte{}, "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, a.Calls())
}

func TestAnalyzeImageTooLarge(t *testing.T) {
	a := &recordingAnalyzer{}
	srv := newTestServer(t, a, web.Options{MaxUploadBytes: 1024})

	big := make([]byte, 200<<10)
	copy(big, minimalJPEG)
	resp := postImage(t, srv.URL+"/api/v1/analyze-image", "image/jpeg", big, "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, a.Calls())
}

func TestChat(t *testing.T) {
	a := &recordingAnalyzer{answer: "Better avoid it."}
	srv := newTestServer(t, a, web.Options{})

	resp := postJSON(t, srv.URL+"/api/v1/chat",
		`{"question": "Is this safe for me?", "context": "Sugar is high", "profile": "Diabetic"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Better avoid it.", decode[web.ChatResponse](t, resp).Answer)
	assert.Equal(t, domain.ChatExchange{
		Question: "Is this safe for me?",
		Context:  "Sugar is high",
		Profile:  domain.ProfileDiabetic,
	}, a.last().chat)
}

func TestChatMissingQuestion(t *testing.T) {
	a := &recordingAnalyzer{}
	srv := newTestServer(t, a, web.Options{})

	resp := postJSON(t, srv.URL+"/api/v1/chat", `{"context": "Sugar is high", "profile": "Diabetic"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Question required", decode[map[string]string](t, resp)["detail"])
	assert.Zero(t, a.Calls())
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &recordingAnalyzer{}, web.Options{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

// failingModel always errors, exercising the full stack down to the fallback.
type failingModel struct{}

func (failingModel) Generate(context.Context, ...llm.Part) (string, error) {
	return "", io.ErrUnexpectedEOF
}

func TestEndToEndFallback(t *testing.T) {
	svc := analysis.NewService(failingModel{}, slog.Default())
	srv := newTestServer(t, svc, web.Options{})

	resp := postJSON(t, srv.URL+"/api/v1/analyze", `{"text": "Sugar", "profile": "Diabetic"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Unknown", body["overall_risk"])
	assert.Equal(t, "Could not analyze. Please try again.", body["summary"])
	assert.Equal(t, []any{}, body["ingredients_breakdown"])

	chat := postJSON(t, srv.URL+"/api/v1/chat", `{"question": "Is this safe for me?", "context": "Sugar is high", "profile": "Diabetic"}`)
	assert.Equal(t, http.StatusOK, chat.StatusCode)
	assert.Equal(t, domain.ChatApology, decode[web.ChatResponse](t, chat).Answer)
}

// scriptedModel returns a fixed fenced verdict so the real service parses it.
type scriptedModel struct{ text string }

func (m scriptedModel) Generate(context.Context, ...llm.Part) (string, error) {
	return m.text, nil
}

func TestEndToEndImageVerdict(t *testing.T) {
	model := scriptedModel{text: "```json\n{\"overall_risk\":\"Caution\",\"summary\":\"Moderate sodium.\",\"ingredients_breakdown\":[{\"name\":\"Salt\",\"risk_level\":\"High\"}]}\n```"}
	svc := analysis.NewService(model, slog.Default())
	srv := newTestServer(t, svc, web.Options{})

	resp := postImage(t, srv.URL+"/api/v1/analyze-image", "image/jpeg", minimalJPEG, "Hypertension")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[domain.ProductVerdict](t, resp)
	assert.Equal(t, "Caution", got.OverallRisk)
	require.Len(t, got.IngredientsBreakdown, 1)
	assert.Equal(t, "Salt", got.IngredientsBreakdown[0].Name)
}
