package e2e

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"chat-relay/domain"
	"chat-relay/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseChatSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestFullChatFlow() {
	// Usernames are random so the scenario can be replayed against the same
	// server without tripping the duplicate check.
	username := "e2e" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	password := "E2ePassword123!"
	var token string

	s.Run("Step 1: Register and login", func() {
		token = s.Register(username, password)
		loginToken := s.Login(username, password)
		s.Require().NotEmpty(loginToken)
	})

	alice := s.Connect()
	observer := s.Connect()

	s.Run("Step 2: A signed-in message reaches every connection", func() {
		text := fmt.Sprintf("hello from %s", username)
		s.Send(alice, text, token)

		fromOrigin := s.WaitForMessage(alice, func(m event.MessagePayload) bool { return m.Username == username })
		s.Require().Equal(text, fromOrigin.Text)
		s.Require().NotEmpty(fromOrigin.ID)

		fromObserver := s.WaitForMessage(observer, func(m event.MessagePayload) bool { return m.Username == username })
		s.Require().Equal(text, fromObserver.Text)
	})

	s.Run("Step 3: An anonymous message only warns its sender", func() {
		anonymous := s.Connect()
		s.Send(anonymous, "should not appear", "")

		kind, data := s.ReadEnvelope(anonymous)
		s.Require().Equal(event.KindWarning, kind)

		var warning event.WarningPayload
		s.Require().NoError(json.Unmarshal(data, &warning))
		s.Require().Contains(warning.Message, "not signed in")
	})

	s.Run("Step 4: A private command answers the origin only", func() {
		s.Send(alice, "/who", token)

		for {
			kind, data := s.ReadEnvelope(alice)
			if kind != event.KindCommand {
				continue
			}
			var result domain.CommandResult
			s.Require().NoError(json.Unmarshal(data, &result))
			s.Require().Equal("who", result.Command)
			s.Require().Contains(result.Message, "online")
			break
		}
	})

	s.Run("Step 5: A broadcast command reaches other connections", func() {
		s.Send(alice, "/me waves at the crowd", token)

		for {
			kind, data := s.ReadEnvelope(observer)
			if kind != event.KindCommand {
				continue
			}
			var result domain.CommandResult
			s.Require().NoError(json.Unmarshal(data, &result))
			s.Require().Equal("me", result.Command)
			s.Require().Equal(username+" waves at the crowd", result.Message)
			break
		}
	})

	s.Run("Step 6: Disconnecting announces the departure", func() {
		s.Require().NoError(alice.Close())

		notice := s.WaitForMessage(observer, func(m event.MessagePayload) bool {
			return m.Username == event.SystemUsername && strings.Contains(m.Text, username)
		})
		s.Require().Contains(notice.Text, "has disconnected")
	})
}
