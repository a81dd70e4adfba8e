package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/theo/internal/analytics"
	"github.com/user/theo/internal/intake"
	"github.com/user/theo/internal/state"
	"github.com/user/theo/internal/types"
	"github.com/user/theo/internal/workspace"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type failingBackend struct {
	*state.MemoryBackend
}

func (failingBackend) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func setupServer(t *testing.T, backend state.Backend) (*Server, *workspace.Workspace) {
	t.Helper()
	if backend == nil {
		backend = state.NewMemoryBackend()
	}
	monday := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	ws := workspace.Open(context.Background(), state.New(backend), workspace.Options{
		Now: func() time.Time { return monday },
	})
	return New(ws, 1024), ws
}

func do(t *testing.T, srv http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t, nil)

	w := do(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestCreateAndListEvents(t *testing.T) {
	srv, ws := setupServer(t, nil)

	w := do(t, srv, http.MethodPost, "/api/events", "application/json",
		[]byte(`{"title":"Launch night","date":"2024-06-14","theme":"Event Promo"}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created types.Event
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Launch night", created.Title)
	assert.Equal(t, 1, ws.Events().Len())

	w = do(t, srv, http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []types.Event
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Equal(t, []types.Event{created}, listed)
}

func TestListEmptyIsArray(t *testing.T) {
	srv, _ := setupServer(t, nil)

	w := do(t, srv, http.MethodGet, "/api/contacts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListServesRecordsAddedElsewhere(t *testing.T) {
	backend := state.NewMemoryBackend()
	srv, _ := setupServer(t, backend)

	cli := workspace.Open(context.Background(), state.New(backend), workspace.Options{})
	idea, err := cli.AddIdea(context.Background(), intake.IdeaForm{Title: "added from the cli"})
	require.NoError(t, err)

	w := do(t, srv, http.MethodGet, "/api/ideas", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []types.Idea
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Equal(t, []types.Idea{idea}, listed)

	w = do(t, srv, http.MethodPost, "/api/ideas", "application/json", []byte(`{"title":"added by the daemon"}`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, state.Read(context.Background(), state.New(backend), "theo_ideas", []types.Idea{}), 2)
}

func TestCreateValidationError(t *testing.T) {
	srv, ws := setupServer(t, nil)

	w := do(t, srv, http.MethodPost, "/api/ideas", "application/json",
		[]byte(`{"title":"  ","priority":"urgent"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Fields, 2)
	assert.Equal(t, 0, ws.Ideas().Len())
}

func TestCreateInvalidJSON(t *testing.T) {
	srv, _ := setupServer(t, nil)

	w := do(t, srv, http.MethodPost, "/api/contacts", "application/json", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePersistFailure(t *testing.T) {
	srv, ws := setupServer(t, failingBackend{state.NewMemoryBackend()})

	w := do(t, srv, http.MethodPost, "/api/contacts", "application/json", []byte(`{"phone":"+15550100"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, ws.Contacts().Len())
}

func TestListOrderAndLimit(t *testing.T) {
	srv, _ := setupServer(t, nil)
	for _, title := range []string{"a", "b", "c"} {
		w := do(t, srv, http.MethodPost, "/api/ideas", "application/json", []byte(`{"title":"`+title+`"}`))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	titles := func(w *httptest.ResponseRecorder) []string {
		var ideas []types.Idea
		require.NoError(t, json.NewDecoder(w.Body).Decode(&ideas))
		out := make([]string, len(ideas))
		for i, idea := range ideas {
			out[i] = idea.Title
		}
		return out
	}

	assert.Equal(t, []string{"a", "b"}, titles(do(t, srv, http.MethodGet, "/api/ideas?limit=2", "", nil)))
	assert.Equal(t, []string{"c", "b", "a"}, titles(do(t, srv, http.MethodGet, "/api/ideas?order=recent", "", nil)))
	assert.Equal(t, []string{"c"}, titles(do(t, srv, http.MethodGet, "/api/ideas?order=recent&limit=1", "", nil)))

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/ideas?limit=x", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/ideas?order=oldest", "", nil).Code)
}

func TestLogMessageJSONReturnsThemes(t *testing.T) {
	srv, ws := setupServer(t, nil)

	w := do(t, srv, http.MethodPost, "/api/messages", "application/json",
		[]byte(`{"text":"Free cover, VIP tables tonight!"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Message types.Message `json:"message"`
		Themes  []string      `json:"themes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"Free Cover", "VIP Tables", "Event Promo"}, resp.Themes)
	assert.Equal(t, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC), resp.Message.CreatedAt)
	assert.Equal(t, 1, ws.Messages().Len())
}

func TestLogMessageHTMLIsConverted(t *testing.T) {
	srv, ws := setupServer(t, nil)

	w := do(t, srv, http.MethodPost, "/api/messages", "text/html; charset=utf-8",
		[]byte(`<p>Student <strong>night</strong> on campus</p>`))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	msgs := ws.Messages().List()
	require.Len(t, msgs, 1)
	assert.NotContains(t, msgs[0].Text, "<p>")
	assert.Contains(t, msgs[0].Text, "**night**")
}

func TestLogMessagePlainText(t *testing.T) {
	srv, ws := setupServer(t, nil)

	w := do(t, srv, http.MethodPost, "/api/messages", "text/plain", []byte("birthday bash"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "birthday bash", ws.Messages().List()[0].Text)

	w = do(t, srv, http.MethodPost, "/api/messages", "text/plain", []byte("   "))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveRecord(t *testing.T) {
	srv, ws := setupServer(t, nil)
	w := do(t, srv, http.MethodPost, "/api/contacts", "application/json", []byte(`{"phone":"+15550100"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	id := ws.Contacts().List()[0].ID

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/contacts/"+id, "", nil).Code)
	assert.Equal(t, 0, ws.Contacts().Len())

	// Unknown ids are a silent no-op.
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/contacts/missing", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/widgets/1", "", nil).Code)
}

func multipartBody(t *testing.T, files map[string][]byte, order ...string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestUploadMedia(t *testing.T) {
	srv, ws := setupServer(t, nil)
	body, ct := multipartBody(t, map[string][]byte{
		"logo.png":  pngBytes,
		"notes.txt": []byte("plain text"),
	}, "logo.png", "notes.txt")

	w := do(t, srv, http.MethodPost, "/api/media", ct, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp uploadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Stored, 1)
	assert.Equal(t, "logo.png", resp.Stored[0].Name)
	assert.True(t, strings.HasPrefix(resp.Stored[0].DataURL, "data:image/png;base64,"))
	assert.Equal(t, []string{"notes.txt"}, resp.Skipped)
	assert.Equal(t, 1, ws.Media().Len())
}

func TestUploadMediaTooLarge(t *testing.T) {
	srv, ws := setupServer(t, nil)
	big := append(append([]byte{}, pngBytes...), make([]byte, 2048)...)
	body, ct := multipartBody(t, map[string][]byte{"big.png": big}, "big.png")

	w := do(t, srv, http.MethodPost, "/api/media", ct, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, ws.Media().Len())
}

func TestUploadMediaRequiresFiles(t *testing.T) {
	srv, _ := setupServer(t, nil)
	body, ct := multipartBody(t, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/media", ct, body).Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv, _ := setupServer(t, nil)
	for _, text := range []string{"VIP table", "bottle service", "free entry"} {
		w := do(t, srv, http.MethodPost, "/api/messages", "text/plain", []byte(text))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(t, srv, http.MethodGet, "/api/analytics/themes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var themes []analytics.ThemeCount
	require.NoError(t, json.NewDecoder(w.Body).Decode(&themes))
	assert.Equal(t, []analytics.ThemeCount{{Name: "VIP Tables", Count: 2}, {Name: "Free Cover", Count: 1}}, themes)

	w = do(t, srv, http.MethodGet, "/api/analytics/weekly", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bars []analytics.Bar
	require.NoError(t, json.NewDecoder(w.Body).Decode(&bars))
	require.Len(t, bars, 7)
	assert.Equal(t, analytics.Bar{Label: "Mon", Count: 3, Height: 120}, bars[0])
	assert.Equal(t, 10.0, bars[6].Height)

	w = do(t, srv, http.MethodGet, "/api/analytics/digest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "VIP Tables")
}
