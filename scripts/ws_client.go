// Package main runs a demo WebSocket client that streams a plan search.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	month := 1
	if len(os.Args) > 1 {
		m, err := strconv.Atoi(os.Args[1])
		if err != nil {
			log.Fatalf("month: %v", err)
		}
		month = m
	}

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/plan/ws"}
	hdr := http.Header{}
	hdr.Set("X-Role", "viewer")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	pl, _ := json.Marshal(map[string]any{"month": month})
	if err := c.WriteJSON(wsMessage{Type: "plan", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Minute))
	for {
		var m wsMessage
		if err := c.ReadJSON(&m); err != nil {
			log.Fatalf("read: %v", err)
		}
		switch m.Type {
		case "improved":
			log.Printf("WS <- improved: %s", string(m.Payload))
		case "result", "error":
			fmt.Println(string(m.Payload))
			return
		}
	}
}
