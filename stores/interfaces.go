package stores

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/Desarso/advisorchat/models"
)

// Message is one persisted transcript entry.
type Message struct {
	gorm.Model
	ConversationID string    `gorm:"index;not null"`
	Sequence       int       `gorm:"not null"`
	MessageID      string    `gorm:"index"`
	Role           string    `gorm:"not null"` // user, assistant, system
	Content        string    `gorm:"type:text"`
	SentAt         time.Time `gorm:"index"`
	// MetadataJSON holds tool calls, action flag and context.
	MetadataJSON string           `gorm:"type:text"`
	Metadata     *models.Metadata `gorm:"-"`
}

// BeforeSave marshals Metadata to MetadataJSON
func (m *Message) BeforeSave(tx *gorm.DB) error {
	if m.Metadata == nil {
		m.MetadataJSON = ""
		return nil
	}
	data, err := json.Marshal(m.Metadata)
	if err != nil {
		return err
	}
	m.MetadataJSON = string(data)
	return nil
}

// AfterFind unmarshals MetadataJSON to Metadata
func (m *Message) AfterFind(tx *gorm.DB) error {
	if m.MetadataJSON == "" {
		return nil
	}
	m.Metadata = &models.Metadata{}
	return json.Unmarshal([]byte(m.MetadataJSON), m.Metadata)
}

// ToModel converts the record into a transcript entry.
func (m Message) ToModel() models.Message {
	return models.Message{
		ID:        m.MessageID,
		Role:      models.Role(m.Role),
		Content:   m.Content,
		Timestamp: m.SentAt,
		Metadata:  m.Metadata,
	}
}

// Conversation holds metadata for a chat session
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	UserID         string    `gorm:"index;not null"`
	Title          string    `gorm:"type:text"`
	MessageCount   int       `gorm:"default:0"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// ConversationInfo holds basic conversation metadata for listing
type ConversationInfo struct {
	ConversationID string
	UserID         string
	Title          string
	MessageCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ToModel converts to the wire listing shape.
func (c ConversationInfo) ToModel() models.Conversation {
	return models.Conversation{
		SessionID:    c.ConversationID,
		Title:        c.Title,
		MessageCount: c.MessageCount,
		CreatedAt:    models.Timestamp{Time: c.CreatedAt},
		UpdatedAt:    models.Timestamp{Time: c.UpdatedAt},
	}
}

// MessageStore abstracts transcript persistence
type MessageStore interface {
	// Message operations
	SaveMessage(conversationID, userID string, msg models.Message) error
	FetchHistory(conversationID string, limit int) ([]Message, error)

	// Conversation operations
	CreateConversation(convoID, userID string) error
	GetConversation(convoID string) (*Conversation, error)
	ListConversationsForUser(userID string) ([]ConversationInfo, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string `json:"type" yaml:"type"`             // "sqlite" or "postgres"
	Connection string `json:"connection" yaml:"connection"` // file path or DSN
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{Type: storeType, Connection: connection}
}
