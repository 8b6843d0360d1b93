package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/limitedbot/internal/cache/local"
	"github.com/alanyoungcy/limitedbot/internal/domain"
)

func startHub(t *testing.T) (*local.SignalBus, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := local.NewSignalBus()
	status := func(context.Context) domain.BotStatus {
		return domain.BotStatus{Mode: "server", Processed: 7}
	}
	hub := NewHub(bus, status, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return bus, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.TextMessage {
		t.Fatalf("frame type = %d, want text", typ)
	}
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestHubGreetsAndForwards(t *testing.T) {
	bus, conn := startHub(t)

	ev := readEvent(t, conn)
	if ev.Type != "bot_status" {
		t.Fatalf("first event = %q, want bot_status", ev.Type)
	}
	var st domain.BotStatus
	if err := json.Unmarshal(ev.Payload, &st); err != nil || st.Processed != 7 {
		t.Fatalf("status payload = %s (%v)", ev.Payload, err)
	}

	payload, _ := domain.NewEvent("scan", domain.ScanResult{Counterparty: 42, Outcome: domain.ScanNoTrade})
	_ = bus.Publish(context.Background(), domain.ChannelScans, payload)

	ev = readEvent(t, conn)
	if ev.Type != "scan" {
		t.Fatalf("event = %q, want scan", ev.Type)
	}
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{domain.ChannelScans: true, domain.ChannelCandidates: true}}

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelScans}})
	if c.isSubscribed(domain.ChannelScans) {
		t.Fatal("still subscribed to scans")
	}
	if !c.isSubscribed(domain.ChannelCandidates) {
		t.Fatal("lost candidates subscription")
	}

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{domain.ChannelSnapshot}})
	c.handleSubscription(subscribeMsg{Action: "bogus", Channels: []string{domain.ChannelScans}})
	if !c.isSubscribed(domain.ChannelSnapshot) || c.isSubscribed(domain.ChannelScans) {
		t.Fatalf("subs = %v", c.subs)
	}
}
