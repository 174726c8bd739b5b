package models

import (
	"encoding/json"
	"strings"
)

// User is the authenticated advisor.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Picture   string `json:"picture,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// AuthResult is returned by the OAuth code exchanges.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// AuthStatus is returned by GET /api/auth/status. User is nil when the
// token is not accepted.
type AuthStatus struct {
	User *User `json:"user"`
}

// ReauthResult is returned when the backend clears stale Google credentials.
type ReauthResult struct {
	Success bool   `json:"success"`
	AuthURL string `json:"authUrl"`
}

// IntegrationStatus reports whether a third-party account is linked.
type IntegrationStatus struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
	AuthURL   string `json:"authUrl,omitempty"`
}

// Task is one entry on the task dashboard.
type Task struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority,omitempty"`
	DueDate     string          `json:"dueDate,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   Timestamp       `json:"createdAt"`
	UpdatedAt   Timestamp       `json:"updatedAt"`
}

// Task statuses used by the dashboard filters.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// Instruction is a standing rule the agent applies proactively.
type Instruction struct {
	ID          int64     `json:"id"`
	Instruction string    `json:"instruction"`
	Trigger     string    `json:"trigger,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// Settings is the free-form user settings document.
type Settings map[string]any

// HubSpotContact is the raw CRM record.
type HubSpotContact struct {
	ID         string            `json:"id"`
	Properties ContactProperties `json:"properties"`
}

// ContactProperties are the HubSpot contact fields the product reads.
type ContactProperties struct {
	FirstName        string `json:"firstname,omitempty"`
	LastName         string `json:"lastname,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Company          string `json:"company,omitempty"`
	JobTitle         string `json:"jobtitle,omitempty"`
	LifecycleStage   string `json:"lifecyclestage,omitempty"`
	CreateDate       string `json:"createdate,omitempty"`
	LastModifiedDate string `json:"lastmodifieddate,omitempty"`
}

// Client is the flattened row shown in the clients table.
type Client struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Company        string `json:"company,omitempty"`
	Phone          string `json:"phone,omitempty"`
	LifecycleStage string `json:"lifecycleStage,omitempty"`
	CreatedAt      string `json:"createdAt"`
	LastModified   string `json:"lastModified"`
}

// ToClient flattens a contact into a table row.
func (c HubSpotContact) ToClient() Client {
	p := c.Properties
	return Client{
		ID:             c.ID,
		Name:           strings.TrimSpace(p.FirstName + " " + p.LastName),
		Email:          p.Email,
		Company:        p.Company,
		Phone:          p.Phone,
		LifecycleStage: p.LifecycleStage,
		CreatedAt:      p.CreateDate,
		LastModified:   p.LastModifiedDate,
	}
}

// CalendarEvent mirrors the Google Calendar event subset the product uses.
type CalendarEvent struct {
	ID          string             `json:"id,omitempty"`
	Summary     string             `json:"summary"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Start       EventTime          `json:"start"`
	End         EventTime          `json:"end"`
	Attendees   []Attendee         `json:"attendees,omitempty"`
	Reminders   *CalendarReminders `json:"reminders,omitempty"`
	Status      string             `json:"status,omitempty"`
	HTMLLink    string             `json:"htmlLink,omitempty"`
	Created     string             `json:"created,omitempty"`
	Updated     string             `json:"updated,omitempty"`
}

type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

type CalendarReminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides,omitempty"`
}

type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// CalendarConfig holds working-hour preferences for scheduling.
type CalendarConfig struct {
	TimeZone     string `json:"timeZone"`
	WorkingHours struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"workingHours"`
	WorkingDays []int `json:"workingDays"`
}
