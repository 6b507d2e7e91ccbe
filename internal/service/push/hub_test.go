package push

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/repository"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func TestHubBroadcastsTrades(t *testing.T) {
	hub := NewHub(nil)
	e := echo.New()
	hub.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("expected one client, got %d", hub.Clients())
	}

	trade := models.TradeRecord{ID: "t-1", Symbol: "AAPL", Quantity: 3, Price: 100}
	if err := hub.OnTrade(context.Background(), trade); err != nil {
		t.Fatalf("OnTrade: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev repository.TradeEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != repository.EventNewTrade || ev.Trade.ID != "t-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
