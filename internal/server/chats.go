package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/internal/model/chat"
	"github.com/vkazakov/chatline/internal/model/event"
	"github.com/vkazakov/chatline/pkg/utils"
)

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	chats := s.store.ChatsFor(claims.UserID)
	if chats == nil {
		chats = []chat.Chat{}
	}
	utils.RespondJSON(w, http.StatusOK, chats)
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var payload struct {
		Tag string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Tag == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeRequestValidation, "tag is required", nil)
		return
	}

	other, ok := s.store.UserByTag(payload.Tag)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "user not found",
			map[string]any{"entity": "user"})
		return
	}

	title := fmt.Sprintf("%s-%s", claims.Tag, other.Tag)
	created, err := s.store.CreateChat(claims.UserID, other.UserID, title)
	switch err {
	case nil:
	case ErrSelfChat:
		utils.RespondError(w, http.StatusConflict, api.CodeCannotChatYourself, "cannot create chat with yourself", nil)
		return
	case ErrChatExists:
		utils.RespondError(w, http.StatusConflict, api.CodeChatAlreadyExists, "chat already exists", nil)
		return
	default:
		utils.RespondError(w, http.StatusInternalServerError, api.CodeUnknown, "failed to create chat", nil)
		return
	}

	for _, userID := range []int64{created.UserID, created.UserID2} {
		s.hub.Send(userID, event.TypeChatCreated, created)
	}
	utils.RespondOK(w, http.StatusCreated)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid chat id", nil)
		return
	}

	c, ok := s.requireParticipant(w, claims, chatID)
	if !ok {
		return
	}

	if err := s.store.DeleteChat(chatID); err != nil {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "chat not found",
			map[string]any{"entity": "chat", "entity_id": chatID})
		return
	}

	for _, userID := range []int64{c.UserID, c.UserID2} {
		s.hub.Send(userID, event.TypeChatDeleted, map[string]int64{"conversation_id": chatID})
	}
	utils.RespondOK(w, http.StatusOK)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid chat id", nil)
		return
	}
	if _, ok := s.requireParticipant(w, claims, chatID); !ok {
		return
	}

	utils.RespondJSON(w, http.StatusOK, s.store.MessagesFor(chatID))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid chat id", nil)
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Text == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeRequestValidation, "text is required", nil)
		return
	}

	c, ok := s.requireParticipant(w, claims, chatID)
	if !ok {
		return
	}

	msg, err := s.store.CreateMessage(chatID, claims.UserID, payload.Text)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "chat not found",
			map[string]any{"entity": "chat", "entity_id": chatID})
		return
	}

	for _, userID := range []int64{c.UserID, c.UserID2} {
		s.hub.Send(userID, event.TypeMessageCreated, msg)
	}
	s.hub.Send(c.OtherParticipant(claims.UserID), event.TypeNotification, map[string]any{
		"event_type": event.NotificationNewMessage,
		"chat_name":  ChatName(c, claims.Tag),
		"sender_tag": claims.Tag,
		"text":       msg.Text,
	})

	utils.RespondJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	msg, c, ok := s.requireOwnMessage(w, r, claims, "edit")
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Text == "" {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeRequestValidation, "text is required", nil)
		return
	}

	updated, err := s.store.EditMessage(msg.MessageID, payload.Text)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "message not found",
			map[string]any{"entity": "message", "entity_id": msg.MessageID})
		return
	}

	for _, userID := range []int64{c.UserID, c.UserID2} {
		s.hub.Send(userID, event.TypeMessageUpdated, updated)
	}
	utils.RespondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	msg, c, ok := s.requireOwnMessage(w, r, claims, "delete")
	if !ok {
		return
	}

	if err := s.store.DeleteMessage(msg.MessageID); err != nil {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "message not found",
			map[string]any{"entity": "message", "entity_id": msg.MessageID})
		return
	}

	for _, userID := range []int64{c.UserID, c.UserID2} {
		s.hub.Send(userID, event.TypeMessageDeleted, map[string]int64{"message_id": msg.MessageID})
	}
	utils.RespondOK(w, http.StatusOK)
}

func (s *Server) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid message id", nil)
		return
	}

	var payload struct {
		ReactionType chat.ReactionType `json:"reaction_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || !payload.ReactionType.Valid() {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid reaction type", nil)
		return
	}

	msg, ok := s.store.MessageByID(messageID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "message not found",
			map[string]any{"entity": "message", "entity_id": messageID})
		return
	}
	c, ok := s.requireParticipant(w, claims, msg.ConversationID)
	if !ok {
		return
	}

	reaction, err := s.store.AddReaction(messageID, claims.UserID, payload.ReactionType)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "message not found",
			map[string]any{"entity": "message", "entity_id": messageID})
		return
	}

	for _, userID := range []int64{c.UserID, c.UserID2} {
		s.hub.Send(userID, event.TypeReactionAdded, reaction)
	}
	s.hub.Send(c.OtherParticipant(claims.UserID), event.TypeNotification, map[string]any{
		"event_type":    event.NotificationNewReaction,
		"chat_name":     ChatName(c, claims.Tag),
		"sender_tag":    claims.Tag,
		"reaction_type": reaction.ReactionType,
	})

	utils.RespondOK(w, http.StatusCreated)
}

func (s *Server) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid message id", nil)
		return
	}
	reactionID, err := strconv.ParseInt(chi.URLParam(r, "reactionID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid reaction id", nil)
		return
	}

	msg, ok := s.store.MessageByID(messageID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "message not found",
			map[string]any{"entity": "message", "entity_id": messageID})
		return
	}
	c, ok := s.requireParticipant(w, claims, msg.ConversationID)
	if !ok {
		return
	}

	if _, err := s.store.RemoveReaction(messageID, reactionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "reaction not found",
			map[string]any{"entity": "reaction", "entity_id": reactionID})
		return
	}

	for _, userID := range []int64{c.UserID, c.UserID2} {
		s.hub.Send(userID, event.TypeReactionRemoved, map[string]int64{
			"message_id":  messageID,
			"reaction_id": reactionID,
		})
	}
	utils.RespondOK(w, http.StatusOK)
}

// requireParticipant loads a chat and rejects callers that are not one of
// its two participants.
func (s *Server) requireParticipant(w http.ResponseWriter, claims *Claims, chatID int64) (chat.Chat, bool) {
	c, ok := s.store.ChatByID(chatID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "chat not found",
			map[string]any{"entity": "chat", "entity_id": chatID})
		return chat.Chat{}, false
	}
	if claims.UserID != c.UserID && claims.UserID != c.UserID2 {
		utils.RespondError(w, http.StatusForbidden, api.CodeNoAccess, "You are not a participant of the chat", nil)
		return chat.Chat{}, false
	}
	return c, true
}

// requireOwnMessage loads a message and rejects callers that do not own
// it or are outside its chat.
func (s *Server) requireOwnMessage(w http.ResponseWriter, r *http.Request, claims *Claims, verb string) (chat.Message, chat.Chat, bool) {
	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusUnprocessableEntity, api.CodeBadValue, "invalid message id", nil)
		return chat.Message{}, chat.Chat{}, false
	}

	msg, ok := s.store.MessageByID(messageID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, api.CodeNotFound, "message not found",
			map[string]any{"entity": "message", "entity_id": messageID})
		return chat.Message{}, chat.Chat{}, false
	}

	c, ok := s.requireParticipant(w, claims, msg.ConversationID)
	if !ok {
		return chat.Message{}, chat.Chat{}, false
	}

	if msg.UserID != claims.UserID {
		utils.RespondError(w, http.StatusForbidden, api.CodeNoAccess,
			fmt.Sprintf("You can %s only your own messages", verb), nil)
		return chat.Message{}, chat.Chat{}, false
	}
	return msg, c, true
}
