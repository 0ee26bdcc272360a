package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"chat-relay/domain/event"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const readTimeout = 5 * time.Second

// BaseChatSuite gives scenarios HTTP and websocket helpers against a running
// server. Suites embedding it are skipped when CHAT_SERVER_ADDR is unset.
type BaseChatSuite struct {
	suite.Suite
	Config Config
}

func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("CHAT_SERVER_ADDR not set, skipping e2e suite")
	}
}

func (s *BaseChatSuite) banner(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Register creates an account and returns its token.
func (s *BaseChatSuite) Register(username, password string) string {
	s.banner("register " + username)
	return s.postCredentials("/api/register", username, password, http.StatusCreated)
}

// Login signs an existing account in and returns its token.
func (s *BaseChatSuite) Login(username, password string) string {
	s.banner("login " + username)
	return s.postCredentials("/api/login", username, password, http.StatusOK)
}

func (s *BaseChatSuite) postCredentials(path, username, password string, wantStatus int) string {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	s.Require().NoError(err)

	resp, err := http.Post("http://"+s.Config.ServerAddr+path, "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(wantStatus, resp.StatusCode)

	var payload struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	s.Require().NotEmpty(payload.Token)
	return payload.Token
}

// Connect opens a websocket to the server and registers cleanup.
func (s *BaseChatSuite) Connect() *websocket.Conn {
	wsURL := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// Send writes one frame.
func (s *BaseChatSuite) Send(conn *websocket.Conn, text, token string) {
	s.Require().NoError(conn.WriteJSON(event.Frame{Text: text, Token: token}))
}

// ReadEnvelope blocks for the next outbound envelope.
func (s *BaseChatSuite) ReadEnvelope(conn *websocket.Conn) (event.Kind, json.RawMessage) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(readTimeout)))

	var raw struct {
		Event event.Kind      `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	_, payload, err := conn.ReadMessage()
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal(payload, &raw))
	return raw.Event, raw.Data
}

// WaitForMessage reads envelopes until a chat message matching the predicate
// arrives, skipping replayed history and unrelated traffic.
func (s *BaseChatSuite) WaitForMessage(conn *websocket.Conn, match func(event.MessagePayload) bool) event.MessagePayload {
	for {
		kind, data := s.ReadEnvelope(conn)
		if kind != event.KindMessage {
			continue
		}
		var payload event.MessagePayload
		s.Require().NoError(json.Unmarshal(data, &payload))
		if match(payload) {
			return payload
		}
	}
}
