// Command modwatch logs in as a staff account and prints the moderation feed.
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

	"istancool/internal/models"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8000", "API server host")
	email := flag.String("email", "", "Editor or admin email")
	password := flag.String("password", "", "Account password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("usage: modwatch -email <email> -password <password> [-host host:port]")
	}

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws/moderation", RawQuery: "token=" + url.QueryEscape(token)}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("Dial failed with status %d: %v", resp.StatusCode, err)
		}
		log.Fatalf("Dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	log.Printf("Watching moderation events on %s", u.Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("Read error: %v", err)
				}
				return
			}
			var ev models.PostEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("Unparsed message: %s", data)
				continue
			}
			fmt.Printf("%s  %-14s post=%d status=%s actor=%d %q\n",
				ev.At.Format(time.RFC3339), ev.Type, ev.PostID, ev.Status, ev.ActorID, ev.Title)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-interrupt:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(host, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/auth/login", host), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}
