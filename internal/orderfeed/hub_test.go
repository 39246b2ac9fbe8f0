package orderfeed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cutin/internal/domain"
	"github.com/gorilla/websocket"
)

func TestHubRoutesByMerchant(t *testing.T) {
	h := NewHub(nil)
	a, cancelA := h.Follow("m1")
	defer cancelA()
	b, cancelB := h.Follow("m2")
	defer cancelB()

	h.Publish(Event{Type: EventCreated, Order: domain.Order{ID: "o1", MerchantID: "m1"}})

	select {
	case ev := <-a:
		if ev.Order.ID != "o1" || ev.Type != EventCreated {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("follower of m1 got nothing")
	}
	select {
	case ev := <-b:
		t.Fatalf("follower of m2 got %+v", ev)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Follow("m1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if h.Followers("m1") != 0 {
		t.Fatalf("follower not removed")
	}
	h.Publish(Event{Order: domain.Order{MerchantID: "m1"}})
}

func TestHubDropsWhenFollowerIsBehind(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Follow("m1")
	defer cancel()
	for i := 0; i < bufferSize+5; i++ {
		h.Publish(Event{Order: domain.Order{MerchantID: "m1"}})
	}
	if len(ch) != bufferSize {
		t.Fatalf("expected buffer to be full, got %d", len(ch))
	}
}

func TestServeStreamsEvents(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, "m1")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Followers("m1") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("server never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.Publish(Event{Type: EventStatusChanged, Order: domain.Order{ID: "o1", MerchantID: "m1", Status: domain.OrderPreparing}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != EventStatusChanged || ev.Order.Status != domain.OrderPreparing {
		t.Fatalf("unexpected event %+v", ev)
	}
}
