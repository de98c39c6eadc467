package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vkazakov/chatline/internal/model/chat"
)

// SignUpRequest is the registration payload. A successful sign-up also
// logs the new user in (the response sets the session cookies).
type SignUpRequest struct {
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Tag       string `json:"tag"`
	Password  string `json:"password"`
	Bio       string `json:"bio"`
}

// Login creates a session for the given credentials. It bypasses the
// refresh machinery: there is no session to renew yet, and a rejection
// must come back as data rather than escalate a logout.
func (c *Client) Login(ctx context.Context, tag, password string) error {
	form := url.Values{}
	form.Set("username", tag)
	form.Set("password", password)

	payload, contentType, err := encodeBody(form)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, tokenPath, payload, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}
	return nil
}

// SignUp registers a new user and starts their session.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, "/api/v1/user", payload, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}
	return nil
}

// Logout destroys the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.Do(ctx, http.MethodPost, logoutPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (chat.User, error) {
	return c.getUser(ctx, "/api/v1/user/me")
}

// UserByID fetches a profile by numeric id.
func (c *Client) UserByID(ctx context.Context, id int64) (chat.User, error) {
	return c.getUser(ctx, fmt.Sprintf("/api/v1/user/id/%d", id))
}

// UserByTag fetches a profile by its unique tag.
func (c *Client) UserByTag(ctx context.Context, tag string) (chat.User, error) {
	return c.getUser(ctx, "/api/v1/user/tag/"+url.PathEscape(tag))
}

func (c *Client) getUser(ctx context.Context, path string) (chat.User, error) {
	var user chat.User
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return user, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return user, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return user, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

// Chats lists the current user's conversations.
func (c *Client) Chats(ctx context.Context) ([]chat.Chat, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/api/v1/chat", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var chats []chat.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chats); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}
	return chats, nil
}

// CreateChat opens a conversation with the user behind tag. The store is
// not touched here: the authoritative insert arrives as a chat.created
// push event.
func (c *Client) CreateChat(ctx context.Context, tag string) error {
	resp, err := c.Do(ctx, http.MethodPost, "/api/v1/chat", map[string]string{"tag": tag})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}
	return nil
}

// DeleteChat removes a conversation.
func (c *Client) DeleteChat(ctx context.Context, conversationID int64) error {
	resp, err := c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/chat/%d", conversationID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}
	return nil
}

// Messages lists all messages of a conversation.
func (c *Client) Messages(ctx context.Context, conversationID int64) ([]chat.Message, error) {
	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/chat/%d/message", conversationID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var messages []chat.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

// SendMessage posts a new message to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, text string) error {
	path := fmt.Sprintf("/api/v1/chat/%d/message", conversationID)
	resp, err := c.Do(ctx, http.MethodPost, path, map[string]string{"text": text})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}
	return nil
}

// EditMessage replaces the text of an existing message.
func (c *Client) EditMessage(ctx context.Context, conversationID, messageID int64, text string) error {
	path := fmt.Sprintf("/api/v1/chat/%d/message/%d", conversationID, messageID)
	resp, err := c.Do(ctx, http.MethodPatch, path, map[string]string{"text": text})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID int64) error {
	path := fmt.Sprintf("/api/v1/chat/%d/message/%d", conversationID, messageID)
	resp, err := c.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}
	return nil
}

// AddReaction attaches a reaction to a message.
func (c *Client) AddReaction(ctx context.Context, messageID int64, reaction chat.ReactionType) error {
	path := fmt.Sprintf("/api/v1/message/%d/reaction", messageID)
	resp, err := c.Do(ctx, http.MethodPost, path, map[string]string{"reaction_type": string(reaction)})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}
	return nil
}

// RemoveReaction detaches a reaction from a message.
func (c *Client) RemoveReaction(ctx context.Context, messageID, reactionID int64) error {
	path := fmt.Sprintf("/api/v1/message/%d/reaction/%d", messageID, reactionID)
	resp, err := c.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return decodeError(resp)
	}
	return nil
}
