package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGatewayDeliverPostsJSON(t *testing.T) {
	var got deliveryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/deliveries" {
			t.Errorf("request = %s %s, want POST /deliveries", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewGatewaySink(server.URL, "tok")
	if err := sink.Deliver(context.Background(), "U1", "hello", nil); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if got.UserID != "U1" || got.Content != "hello" {
		t.Errorf("posted %+v, want user U1 with content %q", got, "hello")
	}
	if got.Controls != nil {
		t.Errorf("controls = %+v, want none", got.Controls)
	}
}

func TestGatewayDeliverCarriesControls(t *testing.T) {
	var got deliveryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer server.Close()

	sink := NewGatewaySink(server.URL, "")
	err := sink.Deliver(context.Background(), "U2", "offer", &Controls{OfferID: "of-123"})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if got.Controls == nil || got.Controls.OfferID != "of-123" {
		t.Errorf("controls = %+v, want offer id of-123", got.Controls)
	}
}

func TestGatewayDeliverErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "queue full"}`))
	}))
	defer server.Close()

	sink := NewGatewaySink(server.URL, "")
	err := sink.Deliver(context.Background(), "U3", "hello", nil)
	if err == nil {
		t.Fatal("Deliver succeeded, want error")
	}
	if !strings.Contains(err.Error(), "queue full") {
		t.Errorf("error %q does not carry the gateway message", err)
	}
}

func TestGatewayDeliverPlainStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	sink := NewGatewaySink(server.URL, "")
	err := sink.Deliver(context.Background(), "U4", "hello", nil)
	if err == nil {
		t.Fatal("Deliver succeeded, want error")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q does not name the status code", err)
	}
}
