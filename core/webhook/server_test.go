package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingEngine struct {
	mu    sync.Mutex
	calls []engineCall
	panic bool
}

type engineCall struct {
	identity    string
	text        string
	contentType string
}

func (e *recordingEngine) Handle(_ context.Context, identity, text, contentType string) error {
	if e.panic {
		panic("engine blew up")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{identity, text, contentType})
	return nil
}

func newTestServer(t *testing.T, eng Engine) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(Options{Engine: eng, VerifyToken: "secret"}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func post(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func TestVerifyHandshake(t *testing.T) {
	srv := newTestServer(t, &recordingEngine{})

	code, body := get(t, srv.URL+"/whatsapp?hub.verify_token=secret&hub.challenge=12345")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "12345", body)

	code, body = get(t, srv.URL+"/whatsapp?hub.verify_token=wrong&hub.challenge=12345")
	require.Equal(t, http.StatusForbidden, code)
	require.Contains(t, body, "Invalid verify token")

	code, body = get(t, srv.URL+"/whatsapp?hub.challenge=12345")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body, "Missing parameters")

	code, body = get(t, srv.URL+"/whatsapp")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "hub.verify_token")
}

const eventPayload = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "100000001",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"metadata": {"phone_number_id": "1234567890"},
				"messages": [{
					"id": "wamid.abc",
					"from": "51999888777",
					"type": "text",
					"text": {"body": "hola"}
				}]
			}
		}]
	}]
}`

func TestEventsDispatchedToEngine(t *testing.T) {
	eng := &recordingEngine{}
	srv := newTestServer(t, eng)

	code, body := post(t, srv.URL+"/whatsapp", eventPayload)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "EVENT_RECEIVED", body)

	require.Len(t, eng.calls, 1)
	require.Equal(t, engineCall{"51999888777", "hola", "text"}, eng.calls[0])
}

func TestEventsInteractiveReply(t *testing.T) {
	eng := &recordingEngine{}
	srv := newTestServer(t, eng)

	payload := `{"entry":[{"changes":[{"value":{"messages":[{
		"id": "wamid.def",
		"from": "51999888777",
		"type": "interactive",
		"interactive": {"type": "button_reply", "button_reply": {"id": "btn_0", "title": "Camionetas"}}
	}]}}]}]}`
	code, body := post(t, srv.URL+"/whatsapp", payload)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "EVENT_RECEIVED", body)
	require.Equal(t, engineCall{"51999888777", "Camionetas", "interactive"}, eng.calls[0])
}

func TestEventsWithoutMessages(t *testing.T) {
	eng := &recordingEngine{}
	srv := newTestServer(t, eng)

	code, body := post(t, srv.URL+"/whatsapp", `{"object":"whatsapp_business_account","entry":[]}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "no event received", body)
	require.Empty(t, eng.calls)
}

func TestEventsRejectNonJSON(t *testing.T) {
	srv := newTestServer(t, &recordingEngine{})

	code, body := post(t, srv.URL+"/whatsapp", "definitely not json")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body, "not json")
}

func TestEngineErrorsAndPanicsStillAcked(t *testing.T) {
	eng := &recordingEngine{panic: true}
	srv := newTestServer(t, eng)

	code, body := post(t, srv.URL+"/whatsapp", eventPayload)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "EVENT_RECEIVED", body)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &recordingEngine{})
	code, body := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body)
}
