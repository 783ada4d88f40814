package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/persona-chat/internal/model/persona"
)

func TestGetPersona(t *testing.T) {
	r := chi.NewRouter()
	New(persona.Default()).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/persona", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Name                string   `json:"name"`
		Title               string   `json:"title"`
		Placeholder         string   `json:"placeholder"`
		NonRespondingTopics []string `json:"nonRespondingTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Name != "Mahatma Gandhi" {
		t.Fatalf("unexpected name %q", body.Name)
	}
	if body.Title != "Chat with Mahatma Gandhi" {
		t.Fatalf("unexpected title %q", body.Title)
	}
	if body.Placeholder != "Ask Mahatma Gandhi anything." {
		t.Fatalf("unexpected placeholder %q", body.Placeholder)
	}
	if len(body.NonRespondingTopics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(body.NonRespondingTopics))
	}
}
