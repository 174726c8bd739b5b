package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Desarso/advisorchat/models"
)

// Task is a persisted dashboard task, scoped to one user.
type Task struct {
	ID          uint   `gorm:"primarykey"`
	UserID      string `gorm:"index:idx_task_user;not null"`
	Type        string `gorm:"not null"`
	Title       string
	Description string `gorm:"type:text"`
	Status      string `gorm:"index:idx_task_user;not null"`
	Priority    string
	DueDate     string
	DataJSON    string `gorm:"type:text"`
	ResultJSON  string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ToModel converts to the wire shape.
func (t Task) ToModel() models.Task {
	return models.Task{
		ID:          int64(t.ID),
		Type:        t.Type,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		Data:        rawOrNil(t.DataJSON),
		Result:      rawOrNil(t.ResultJSON),
		CreatedAt:   models.Timestamp{Time: t.CreatedAt},
		UpdatedAt:   models.Timestamp{Time: t.UpdatedAt},
	}
}

// Update reflects the task as a task_update push payload.
func (t Task) Update() models.TaskUpdate {
	return models.TaskUpdate{
		ID:        int64(t.ID),
		Type:      t.Type,
		Status:    t.Status,
		Data:      rawOrNil(t.DataJSON),
		Result:    rawOrNil(t.ResultJSON),
		Timestamp: models.Timestamp{Time: t.UpdatedAt},
	}
}

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

// apply copies the non-nil fields of in onto t.
func (t *Task) apply(in models.TaskInput) error {
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
	if in.Data != nil {
		data, err := json.Marshal(in.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal task data: %w", err)
		}
		t.DataJSON = string(data)
	}
	return nil
}

// TaskStore interface for task persistence operations
type TaskStore interface {
	// CreateTask stores a new task. Status defaults to pending.
	CreateTask(userID string, in models.TaskInput) (*Task, error)

	// UpdateTask applies the non-nil fields of in
	UpdateTask(userID string, id uint, in models.TaskInput) (*Task, error)

	// CompleteTask records a result and moves the task to completed
	CompleteTask(userID string, id uint, result any) (*Task, error)

	// ListTasks returns a user's tasks, newest first, optionally filtered by status
	ListTasks(userID, status string) ([]Task, error)

	// DeleteTask removes a task
	DeleteTask(userID string, id uint) error
}

func (s *GormStore) CreateTask(userID string, in models.TaskInput) (*Task, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	task := &Task{UserID: userID, Type: "general", Status: models.TaskPending}
	if err := task.apply(in); err != nil {
		return nil, err
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *GormStore) getTask(userID string, id uint) (*Task, error) {
	var task Task
	err := s.db.Where("id = ? AND user_id = ?", id, userID).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return &task, nil
}

func (s *GormStore) UpdateTask(userID string, id uint, in models.TaskInput) (*Task, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	task, err := s.getTask(userID, id)
	if err != nil {
		return nil, err
	}
	if err := task.apply(in); err != nil {
		return nil, err
	}
	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (s *GormStore) CompleteTask(userID string, id uint, result any) (*Task, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	task, err := s.getTask(userID, id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task result: %w", err)
	}
	task.ResultJSON = string(data)
	task.Status = models.TaskCompleted
	if err := s.db.Save(task).Error; err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	return task, nil
}

func (s *GormStore) ListTasks(userID, status string) ([]Task, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	query := s.db.Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var tasks []Task
	if err := query.Order("created_at DESC").Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *GormStore) DeleteTask(userID string, id uint) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	res := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&Task{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
