// Terminal chat client. Reads lines from stdin, sends them as frames and
// renders incoming envelopes with a little color.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"chat-relay/domain"
	"chat-relay/domain/event"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	ServerAddr string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Token      string `env:"CHAT_TOKEN"`
	Username   string `env:"CHAT_USERNAME"`
	Password   string `env:"CHAT_PASSWORD"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "client terminated with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	token := config.Token
	if token == "" && config.Username != "" {
		loginToken, err := login(config)
		if err != nil {
			return err
		}
		token = loginToken
		color.Green.Printf("Signed in as %s\n", config.Username)
	}
	if token == "" {
		color.Yellow.Println("No token configured: connecting anonymously (commands only)")
	}

	wsURL := url.URL{Scheme: "ws", Host: config.ServerAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("connection to %s failed: %w", wsURL.String(), err)
	}
	defer conn.Close()
	color.Green.Printf("Connected to %s. Type /help for commands.\n", config.ServerAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			raw := struct {
				Event event.Kind      `json:"event"`
				Data  json.RawMessage `json:"data"`
			}{}
			if err := conn.ReadJSON(&raw); err != nil {
				return
			}
			render(raw.Event, raw.Data)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return nil
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if err := conn.WriteJSON(event.Frame{Text: line, Token: token}); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

func login(config Config) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": config.Username,
		"password": config.Password,
	})
	if err != nil {
		return "", err
	}

	resp, err := http.Post("http://"+config.ServerAddr+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Token, nil
}

func render(kind event.Kind, data json.RawMessage) {
	switch kind {
	case event.KindMessage:
		var msg event.MessagePayload
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		if msg.Username == event.SystemUsername {
			color.Gray.Println(msg.Text)
			return
		}
		color.Cyan.Printf("%s: ", msg.Username)
		fmt.Println(msg.Text)
	case event.KindCommand:
		renderCommand(data)
	case event.KindWarning:
		var warning event.WarningPayload
		if err := json.Unmarshal(data, &warning); err != nil {
			return
		}
		color.Red.Printf("warning: %s\n", warning.Message)
	}
}

func renderCommand(data json.RawMessage) {
	var result domain.CommandResult
	if err := json.Unmarshal(data, &result); err != nil {
		return
	}
	color.Magenta.Println(result.Message)

	switch result.Command {
	case "who":
		if users, ok := result.Data["users"].([]any); ok && len(users) > 0 {
			table := newTable([]string{"User"})
			for _, u := range users {
				table.Append([]string{fmt.Sprint(u)})
			}
			table.Render()
		}
	case "search":
		if results, ok := result.Data["results"].([]any); ok && len(results) > 0 {
			table := newTable([]string{"User", "Message"})
			for _, r := range results {
				if hit, ok := r.(map[string]any); ok {
					table.Append([]string{fmt.Sprint(hit["username"]), fmt.Sprint(hit["text"])})
				}
			}
			table.Render()
		}
	case "stats":
		if len(result.Data) > 0 {
			table := newTable([]string{"Metric", "Value"})
			for key, value := range result.Data {
				table.Append([]string{key, fmt.Sprint(value)})
			}
			table.Render()
		}
	}
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}
