package websockets

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const AUTH_HANDSHAKE_TIMEOUT = 10 * time.Second

// sendAuthRequest sends the initial authentication challenge to the client.
func (c *Client) sendAuthRequest() error {
	log := c.Manager.log.Function("sendAuthRequest")

	authRequest := Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_REQUEST,
		Channel:   "system",
		Action:    "authenticate",
		Timestamp: time.Now(),
	}

	if err := c.Connection.WriteJSON(authRequest); err != nil {
		return log.Err("failed to send auth request", err, "clientID", c.ID)
	}

	return nil
}

// startAuthTimeout disconnects clients that never answer the challenge.
func (c *Client) startAuthTimeout() {
	log := c.Manager.log.Function("startAuthTimeout")

	go func() {
		time.Sleep(AUTH_HANDSHAKE_TIMEOUT)
		if c.Status != STATUS_UNAUTHENTICATED {
			return
		}

		log.Warn("Client failed to authenticate within timeout, disconnecting",
			"clientID", c.ID, "timeout", AUTH_HANDSHAKE_TIMEOUT)

		authTimeout := Message{
			ID:        uuid.New().String(),
			Type:      MESSAGE_TYPE_AUTH_FAILURE,
			Channel:   "system",
			Action:    "authentication_timeout",
			Data:      map[string]any{"reason": "Authentication timeout"},
			Timestamp: time.Now(),
		}

		select {
		case c.send <- authTimeout:
			time.Sleep(100 * time.Millisecond)
		default:
		}

		if err := c.Connection.Close(); err != nil {
			log.Er("failed to close connection after auth timeout", err, "clientID", c.ID)
		}
	}()
}

// handleAuthResponse validates the bearer token supplied in the handshake and
// binds the connection to the account it belongs to.
func (c *Client) handleAuthResponse(message Message) {
	log := c.Manager.log.Function("handleAuthResponse")

	if c.Status != STATUS_UNAUTHENTICATED {
		log.Warn("Auth response from already authenticated client", "clientID", c.ID)
		return
	}

	token, ok := message.Data["token"].(string)
	if !ok || token == "" {
		c.sendAuthFailure("Invalid token format")
		return
	}

	userID, err := c.Manager.authService.ValidateToken(token)
	if err != nil {
		log.Info("websocket token validation failed", "clientID", c.ID)
		c.sendAuthFailure("Authentication failed")
		return
	}

	user, err := c.Manager.userRepo.GetByID(context.Background(), userID)
	if err != nil {
		log.Info("websocket user not found", "clientID", c.ID, "userID", userID)
		c.sendAuthFailure("User not found")
		return
	}

	c.Status = STATUS_AUTHENTICATED
	c.UserID = user.ID

	log.Info("Client authenticated successfully", "clientID", c.ID, "userID", c.UserID)

	authSuccess := Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_SUCCESS,
		Channel:   "system",
		Action:    "authenticated",
		UserID:    c.UserID.String(),
		Data:      map[string]any{"userId": c.UserID.String()},
		Timestamp: time.Now(),
	}

	c.send <- authSuccess
}

func (c *Client) sendAuthFailure(reason string) {
	log := c.Manager.log.Function("sendAuthFailure")

	authFailure := Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_FAILURE,
		Channel:   "system",
		Action:    "authentication_failed",
		Data:      map[string]any{"reason": reason},
		Timestamp: time.Now(),
	}

	c.send <- authFailure

	log.Info("Auth failure sent, closing connection", "clientID", c.ID, "reason", reason)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = c.Connection.Close()
	}()
}

// handleUnauthenticatedMessage rejects traffic ahead of the handshake.
func (c *Client) handleUnauthenticatedMessage(message Message) {
	c.Manager.log.Function("handleUnauthenticatedMessage").
		Warn("Blocking message from unauthenticated client", "clientID", c.ID, "messageType", message.Type)

	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_FAILURE,
		Channel:   "system",
		Action:    "authentication_required",
		Data:      map[string]any{"reason": "Authentication required"},
		Timestamp: time.Now(),
	}
}
