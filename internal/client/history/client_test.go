package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "test-token")
	return c
}

func writeOK(w http.ResponseWriter, data any) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func TestSendMessage_PostsBodyAndDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			ReceiverID uint64 `json:"receiver_id"`
			Content    string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.ReceiverID != 7 || body.Content != "hello" {
			t.Errorf("unexpected body %+v", body)
		}
		writeOK(w, chat.Message{ID: 100, SenderID: 1, ReceiverID: 7, Content: "hello"})
	})

	msg, err := c.SendMessage(context.Background(), 7, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != 100 || msg.Content != "hello" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestGetMessages_DecodesTranscript(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversations/3/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeOK(w, []chat.Message{{ID: 1, Content: "hi"}, {ID: 2, Content: "hello"}})
	})

	msgs, err := c.GetMessages(context.Background(), 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msgs) != 2 || msgs[1].ID != 2 {
		t.Fatalf("unexpected transcript %+v", msgs)
	}
}

func TestFindAnyStaff_NotFoundMapsToSentinelError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    40402,
			"message": "no staff available",
		})
	})

	if _, err := c.FindAnyStaff(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDo_ServerErrorCarriesEnvelopeMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    10010,
			"message": "content must not be empty",
		})
	})

	_, err := c.SendMessage(context.Background(), 7, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "history: status 400: content must not be empty" {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestDeleteConversation(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodDelete || r.URL.Path != "/api/conversations/9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeOK(w, nil)
	})

	if err := c.DeleteConversation(context.Background(), 9); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !called {
		t.Fatalf("server never hit")
	}
}
