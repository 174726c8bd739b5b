package stores

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Desarso/advisorchat/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// GormStore implements Store on any GORM dialect. SQLite and PostgreSQL
// share every query.
type GormStore struct {
	kind      string
	dialector gorm.Dialector
	db        *gorm.DB
	logger    zerolog.Logger
}

// WithLogger sets the logger used for non-fatal store warnings.
func (s *GormStore) WithLogger(logger zerolog.Logger) *GormStore {
	s.logger = logger.With().Str("component", "store").Str("driver", s.kind).Logger()
	return s
}

// Kind is "sqlite" or "postgres".
func (s *GormStore) Kind() string { return s.kind }

// DB exposes the underlying connection.
func (s *GormStore) DB() *gorm.DB { return s.db }

// Connect opens the database and migrates the schema
func (s *GormStore) Connect() error {
	db, err := gorm.Open(s.dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return err
	}
	s.db = db

	if err := s.db.AutoMigrate(&Conversation{}, &Message{}, &Task{}, &UserSettings{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *GormStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *GormStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SaveMessage appends msg to a conversation, creating the conversation on
// first use. The first user message becomes the title.
func (s *GormStore) SaveMessage(conversationID, userID string, msg models.Message) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Count() avoids gorm's "record not found" path for the common case
	var count int64
	if err := s.db.Model(&Conversation{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("checking conversation")
	} else if count == 0 {
		if err := s.CreateConversation(conversationID, userID); err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("creating conversation")
		}
	}

	if err := s.db.Model(&Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count existing messages: %w", err)
	}
	seq := int(count) + 1

	record := Message{
		ConversationID: conversationID,
		Sequence:       seq,
		MessageID:      msg.ID,
		Role:           string(msg.Role),
		Content:        msg.Content,
		SentAt:         msg.Timestamp,
		Metadata:       msg.Metadata,
	}

	tx := s.db.Begin()
	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create message record: %w", err)
	}

	updates := map[string]any{"message_count": seq}
	if msg.Role == models.RoleUser {
		var conv Conversation
		if err := tx.Where("conversation_id = ?", conversationID).Select("title").Take(&conv).Error; err == nil && conv.Title == "" {
			updates["title"] = titleFrom(msg.Content)
		}
	}
	if err := tx.Model(&Conversation{}).Where("conversation_id = ?", conversationID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return tx.Commit().Error
}

func titleFrom(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if r := []rune(title); len(r) > 60 {
		title = string(r[:57]) + "..."
	}
	return title
}

// FetchHistory retrieves messages for a conversation in sequence order
// limit: maximum number of messages to retrieve (0 = return all messages)
func (s *GormStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var msgs []Message
	query := s.db.Where("conversation_id = ?", conversationID).Order("sequence ASC")

	if limit > 0 {
		var count int64
		if err := s.db.Model(&Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count messages: %w", err)
		}
		// keep only the last N
		if count > int64(limit) {
			query = query.Offset(int(count) - limit)
		}
	}

	if err := query.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

// CreateConversation creates a new conversation record
func (s *GormStore) CreateConversation(convoID, userID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Create(&Conversation{ConversationID: convoID, UserID: userID}).Error
}

func (s *GormStore) GetConversation(convoID string) (*Conversation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var conv Conversation
	err := s.db.Where("conversation_id = ?", convoID).Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	return &conv, nil
}

// ListConversationsForUser returns a user's conversations, most recent first
func (s *GormStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var convs []Conversation
	if err := s.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	result := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		result[i] = ConversationInfo{
			ConversationID: c.ConversationID,
			UserID:         c.UserID,
			Title:          c.Title,
			MessageCount:   c.MessageCount,
			CreatedAt:      c.CreatedAt,
			UpdatedAt:      c.UpdatedAt,
		}
	}
	return result, nil
}
