// Command feedwatch tails the live feed websocket and prints events.
// It is a development tool for watching feed activity from a terminal.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8480", "API server host")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "", "Account password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	wsURL := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/feed"}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), header)
	if err != nil {
		log.Fatalf("dial %s: %v", wsURL.String(), err)
	}
	defer conn.Close()

	log.Printf("watching feed on %s", *host)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			printEvent(payload)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		// Close the connection cleanly so the server unregisters us.
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(host, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	loginURL := fmt.Sprintf("http://%s/api/users/login", host)
	resp, err := http.Post(loginURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("login response contained no token")
	}
	return parsed.Token, nil
}

func printEvent(payload []byte) {
	var event struct {
		Type       string `json:"type"`
		PostID     uint   `json:"postId"`
		ActorID    uint   `json:"actorId"`
		LikesCount int    `json:"likesCount"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("<- %s", payload)
		return
	}

	switch event.Type {
	case "post_liked", "post_unliked":
		log.Printf("<- %s post=%d actor=%d likes=%d", event.Type, event.PostID, event.ActorID, event.LikesCount)
	case "connected":
		log.Printf("<- connected")
	default:
		log.Printf("<- %s post=%d actor=%d", event.Type, event.PostID, event.ActorID)
	}
}
