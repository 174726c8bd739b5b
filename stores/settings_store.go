package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Desarso/advisorchat/models"
)

// UserSettings stores the free-form settings document per user.
type UserSettings struct {
	UserID    string `gorm:"primarykey"`
	DataJSON  string `gorm:"type:text"`
	UpdatedAt time.Time
}

// SettingsStore persists user settings.
type SettingsStore interface {
	GetSettings(userID string) (models.Settings, error)
	SaveSettings(userID string, settings models.Settings) error
}

// GetSettings returns an empty document for users who never saved any.
func (s *GormStore) GetSettings(userID string) (models.Settings, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var row UserSettings
	err := s.db.Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	settings := models.Settings{}
	if row.DataJSON != "" {
		if err := json.Unmarshal([]byte(row.DataJSON), &settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
	}
	return settings, nil
}

func (s *GormStore) SaveSettings(userID string, settings models.Settings) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	row := UserSettings{UserID: userID, DataJSON: string(data)}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data_json", "updated_at"}),
	}).Create(&row).Error
}
