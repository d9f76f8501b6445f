package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/pipeline"
	"github.com/xhad/skim/pkg/processor"
	"github.com/xhad/skim/pkg/scraper"
)

const petsPage = `
<html>
	<head><title>Pets</title></head>
	<body>
		<p>Cats are great pets.</p>
		<p>Dogs are great pets too.</p>
		<p>Rocks do nothing.</p>
	</body>
</html>`

type fakeStore struct {
	recent []models.Summary
}

func (f *fakeStore) Save(ctx context.Context, summary models.Summary, fingerprint []float32) error {
	return nil
}

func (f *fakeStore) Recent(ctx context.Context, limit int) ([]models.Summary, error) {
	return f.recent, nil
}

func (f *fakeStore) Similar(ctx context.Context, fingerprint []float32, limit int) ([]models.Summary, error) {
	return nil, nil
}

func (f *fakeStore) Close() {}

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(petsPage))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestServer(t *testing.T, store types.SummaryStore) *httptest.Server {
	t.Helper()
	extractor, err := scraper.NewExtractor(scraper.ExtractorConfig{})
	require.NoError(t, err)

	config := pipeline.PipelineConfig{
		Fetcher:    scraper.NewFetcher(scraper.FetcherConfig{RateLimit: 100, Timeout: 5 * time.Second}),
		Extractor:  extractor,
		Summarizer: processor.New(),
		VectorDim:  16,
	}
	if store != nil {
		config.Store = store
	}
	p, err := pipeline.NewWithConfig(config)
	require.NoError(t, err)

	s, err := New(Config{}, p)
	require.NoError(t, err)

	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return server
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestIndex(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="sentences" value="5"`)
	assert.Contains(t, body, `name="min_chars" value="40"`)
	assert.NotContains(t, body, `class="error"`)
}

func TestUnknownPath(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/nothing-here")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFormSummarize(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)

	resp, err := http.PostForm(server.URL+"/", url.Values{
		"url":       {pages.URL + "/pets"},
		"sentences": {"2"},
		"min_chars": {"5"},
	})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h2>Pets</h2>")
	assert.Contains(t, body, "<li>Cats are great pets.</li>")
	assert.Contains(t, body, "<li>Dogs are great pets too.</li>")
	assert.NotContains(t, body, "<li>Rocks do nothing.</li>")
	assert.Contains(t, body, "Cats are great pets. Dogs are great pets too. Rocks do nothing.")
	// submitted values are echoed back unclamped
	assert.Contains(t, body, `name="min_chars" value="5"`)
}

func TestFormClampsValues(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)

	resp, err := http.PostForm(server.URL+"/", url.Values{
		"url":       {pages.URL + "/pets"},
		"sentences": {"0"},
		"min_chars": {"-3"},
	})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Contains(t, body, "<li>Cats are great pets.</li>")
	assert.NotContains(t, body, "<li>Dogs are great pets too.</li>")
	assert.NotContains(t, body, `class="error"`)
}

func TestFormErrors(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "non numeric sentences",
			form: url.Values{"url": {pages.URL + "/pets"}, "sentences": {"many"}, "min_chars": {"40"}},
			want: "Sentences and minimum characters must be numeric values.",
		},
		{
			name: "non numeric min chars",
			form: url.Values{"url": {pages.URL + "/pets"}, "sentences": {"3"}, "min_chars": {"4.5"}},
			want: "Sentences and minimum characters must be numeric values.",
		},
		{
			name: "empty url",
			form: url.Values{"url": {"   "}, "sentences": {"3"}, "min_chars": {"40"}},
			want: "Please enter a valid URL.",
		},
		{
			name: "fetch failure",
			form: url.Values{"url": {pages.URL + "/missing"}, "sentences": {"3"}, "min_chars": {"40"}},
			want: "unexpected status code 404",
		},
		{
			name: "sentences too short",
			form: url.Values{"url": {pages.URL + "/pets"}, "sentences": {"3"}, "min_chars": {"400"}},
			want: "not enough substantial sentences",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.PostForm(server.URL+"/", tt.form)
			require.NoError(t, err)
			body := readBody(t, resp)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, `class="error"`)
			assert.Contains(t, body, tt.want)
			assert.NotContains(t, body, "<h2>")
		})
	}
}

func TestFormEchoesInvalidInput(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.PostForm(server.URL+"/", url.Values{
		"url":       {"https://example.com/page"},
		"sentences": {"lots"},
		"min_chars": {"40"},
	})
	require.NoError(t, err)
	body := readBody(t, resp)

	assert.Contains(t, body, `value="https://example.com/page"`)
	assert.Contains(t, body, `name="sentences" value="lots"`)
}

func postJSON(t *testing.T, target, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(target, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func TestAPISummarize(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)

	resp, body := postJSON(t, server.URL+"/api/summarize",
		`{"url": "`+pages.URL+`/pets", "sentences": 1, "min_chars": 10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got summaryResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Pets", got.Title)
	assert.Equal(t, pages.URL+"/pets", got.URL)
	assert.Equal(t, []string{"Cats are great pets."}, got.Summary)
}

func TestAPISummarizeDefaults(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)

	// min_chars falls back to 40, which no sentence on the page reaches
	resp, body := postJSON(t, server.URL+"/api/summarize", `{"url": "`+pages.URL+`/pets"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, body)
}

func TestAPISummarizeErrors(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{"url":`, http.StatusBadRequest},
		{"empty url", `{"url": ""}`, http.StatusBadRequest},
		{"fetch failure", `{"url": "` + pages.URL + `/missing", "min_chars": 10}`, http.StatusBadGateway},
		{"bad scheme", `{"url": "ftp://example.com/file"}`, http.StatusBadGateway},
		{"insufficient content", `{"url": "` + pages.URL + `/pets", "min_chars": 500}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, server.URL+"/api/summarize", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, body)

			var got errorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestAPIRecent(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		server := newTestServer(t, nil)

		resp, err := http.Get(server.URL + "/api/recent")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("with store", func(t *testing.T) {
		store := &fakeStore{recent: []models.Summary{
			{ID: "1", URL: "https://example.com/a", Title: "A", Sentences: []string{"First."}},
			{ID: "2", URL: "https://example.com/b", Title: "B", Sentences: []string{"Second."}},
		}}
		server := newTestServer(t, store)

		resp, err := http.Get(server.URL + "/api/recent?limit=2")
		require.NoError(t, err)
		body := readBody(t, resp)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)

		var got []summaryResponse
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "A", got[0].Title)
		assert.Equal(t, []string{"Second."}, got[1].Summary)
	})

	t.Run("bad limit", func(t *testing.T) {
		server := newTestServer(t, &fakeStore{})

		resp, err := http.Get(server.URL + "/api/recent?limit=zero")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", readBody(t, resp))
}

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketPing(t *testing.T) {
	server := newTestServer(t, nil)
	conn := dialWebSocket(t, server)

	require.NoError(t, conn.WriteJSON(Request{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)
}

func TestWebSocketSummarize(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)
	conn := dialWebSocket(t, server)

	require.NoError(t, conn.WriteJSON(Request{
		Type:      "summarize",
		Content:   pages.URL + "/pets",
		Sentences: 2,
		MinChars:  10,
	}))

	status := readMessage(t, conn)
	assert.Equal(t, "status", status.Type)
	assert.Contains(t, status.Content, pages.URL+"/pets")

	result := readMessage(t, conn)
	require.Equal(t, "summary", result.Type, result.Content)
	assert.Equal(t, "Pets", result.Content)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"Cats are great pets.", "Dogs are great pets too."}, data["summary"])
}

func TestWebSocketErrors(t *testing.T) {
	pages := newPageServer(t)
	server := newTestServer(t, nil)
	conn := dialWebSocket(t, server)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, "error", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Request{Type: "summarize"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Please enter a valid URL.", msg.Content)

	require.NoError(t, conn.WriteJSON(Request{Type: "recent"}))
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "summary history is not enabled", msg.Content)

	require.NoError(t, conn.WriteJSON(Request{Type: "translate"}))
	assert.Equal(t, "error", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Request{Type: "summarize", Content: pages.URL + "/missing"}))
	assert.Equal(t, "status", readMessage(t, conn).Type)
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Content, "404")
}
