package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/stores"
)

func (s *Server) authStatus(c *gin.Context) {
	uid := userID(c)
	user := &models.User{Name: uid}
	if strings.Contains(uid, "@") {
		user.Email = uid
	}
	c.JSON(http.StatusOK, models.AuthStatus{User: user})
}

func (s *Server) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ownsConversation reports whether uid may use sessionID. Unknown ids are
// allowed so a client can pick its own id for a new conversation.
func (s *Server) ownsConversation(c *gin.Context, uid, sessionID string) bool {
	conv, err := s.store.GetConversation(sessionID)
	if errors.Is(err, stores.ErrNotFound) {
		return true
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return false
	}
	if conv.UserID != uid {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return false
	}
	return true
}

func (s *Server) postMessage(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	uid := userID(c)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !s.ownsConversation(c, uid, sessionID) {
		return
	}

	userMsg := models.Message{ID: uuid.NewString(), Role: models.RoleUser, Content: req.Message, Timestamp: time.Now()}
	if err := s.store.SaveMessage(sessionID, uid, userMsg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message: " + err.Error()})
		return
	}

	reply, err := s.responder.Reply(c.Request.Context(), uid, sessionID, req.Message)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("responder failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	reply.SessionID = sessionID

	text := reply.ReplyText()
	assistant := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
		Metadata:  models.NewMetadata(reply.ToolCalls, reply.ActionRequired, reply.Context),
	}
	if err := s.store.SaveMessage(sessionID, uid, assistant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save reply: " + err.Error()})
		return
	}

	if reply.ActionRequired {
		s.createFollowUp(uid, reply, req.Message)
	}
	if s.cfg.PushReplies {
		s.publish(uid, events.ChatMessage, models.ChatMessageEvent{
			Role:           models.RoleAssistant,
			Content:        text,
			Timestamp:      models.Timestamp{Time: assistant.Timestamp},
			ToolCalls:      reply.ToolCalls,
			ActionRequired: reply.ActionRequired,
		})
	}

	c.JSON(http.StatusOK, reply)
}

func (s *Server) createFollowUp(uid string, reply *models.ChatResponse, message string) {
	kind := strings.ReplaceAll(strings.TrimSpace(reply.Context), " ", "_")
	if kind == "" {
		kind = "follow_up"
	}
	task, err := s.store.CreateTask(uid, models.TaskInput{
		Type:  models.Ptr(kind),
		Title: models.Ptr(message),
		Data:  map[string]any{"sessionId": reply.SessionID},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("creating follow-up task")
		return
	}
	s.publish(uid, events.TaskUpdate, task.Update())
}

func (s *Server) publish(uid string, category events.Category, payload any) {
	if err := s.hub.Publish(uid, category, payload); err != nil {
		s.logger.Error().Err(err).Str("event", string(category)).Msg("publish failed")
	}
}

// handleInbound relays what one connection pushes to the user's other
// connections. Chat text is not stored here; the REST path already did.
func (s *Server) handleInbound(from *Client, category events.Category, payload any) {
	switch category {
	case events.ChatMessage:
		msg, _ := payload.(models.ChatMessageEvent)
		if strings.TrimSpace(msg.Content) == "" {
			return
		}
		if !msg.Role.Valid() {
			msg.Role = models.RoleUser
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = models.Timestamp{Time: time.Now()}
		}
		if err := s.hub.relay(from, events.ChatMessage, msg); err != nil {
			s.logger.Error().Err(err).Msg("relaying chat message")
		}
	case events.TaskUpdate:
		if err := s.hub.relay(from, events.TaskUpdate, payload); err != nil {
			s.logger.Error().Err(err).Msg("relaying task update")
		}
	default:
		s.logger.Debug().Str("event", string(category)).Str("user_id", from.UserID()).Msg("ignoring client event")
	}
}

func (s *Server) getHistory(c *gin.Context) {
	uid := userID(c)
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		convs, err := s.store.ListConversationsForUser(uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(convs) == 0 {
			c.JSON(http.StatusOK, []models.HistoryEntry{})
			return
		}
		sessionID = convs[0].ConversationID
	} else if !s.ownsConversation(c, uid, sessionID) {
		return
	}

	msgs, err := s.store.FetchHistory(sessionID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	clean := stores.SanitizeHistory(msgs)
	if dropped := len(msgs) - len(clean); dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Str("session_id", sessionID).Msg("sanitized history")
	}

	entries := make([]models.HistoryEntry, 0, len(clean))
	for _, m := range clean {
		entries = append(entries, models.HistoryEntry{
			ID:        models.FlexibleID(m.MessageID),
			Role:      models.Role(m.Role),
			Content:   m.Content,
			Timestamp: models.Timestamp{Time: m.SentAt},
			Metadata:  m.Metadata,
		})
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getConversations(c *gin.Context) {
	convs, err := s.store.ListConversationsForUser(userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]models.Conversation, 0, len(convs))
	for _, conv := range convs {
		out = append(out, conv.ToModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listTasks(c *gin.Context) {
	tasks, err := s.store.ListTasks(userID(c), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ToModel())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createTask(c *gin.Context) {
	var in models.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := userID(c)
	task, err := s.store.CreateTask(uid, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(uid, events.TaskUpdate, task.Update())
	c.JSON(http.StatusCreated, task.ToModel())
}

func taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) updateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var in models.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := userID(c)
	task, err := s.store.UpdateTask(uid, id, in)
	if errors.Is(err, stores.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(uid, events.TaskUpdate, task.Update())
	c.JSON(http.StatusOK, task.ToModel())
}

func (s *Server) deleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	uid := userID(c)
	err := s.store.DeleteTask(uid, id)
	if errors.Is(err, stores.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.publish(uid, events.TaskUpdate, models.TaskUpdate{
		ID:        int64(id),
		Status:    "deleted",
		Timestamp: models.Timestamp{Time: time.Now()},
	})
	c.Status(http.StatusNoContent)
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.store.GetSettings(userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) putSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SaveSettings(userID(c), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}
