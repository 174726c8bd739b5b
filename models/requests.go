package models

// ChatRequest is the body of POST /api/chat/message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// TaskInput creates or updates a task. Nil fields are left untouched on update.
type TaskInput struct {
	Type        *string        `json:"type,omitempty"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *string        `json:"status,omitempty"`
	Priority    *string        `json:"priority,omitempty"`
	DueDate     *string        `json:"dueDate,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// InstructionInput creates or updates a standing instruction for the agent.
type InstructionInput struct {
	Instruction *string `json:"instruction,omitempty"`
	Trigger     *string `json:"trigger,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// ContactInput creates or updates a HubSpot contact.
type ContactInput struct {
	FirstName      string `json:"firstname,omitempty"`
	LastName       string `json:"lastname,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Company        string `json:"company,omitempty"`
	JobTitle       string `json:"jobtitle,omitempty"`
	LifecycleStage string `json:"lifecyclestage,omitempty"`
}

// AppointmentRequest is the body of POST /calendar/schedule.
type AppointmentRequest struct {
	ClientEmail string `json:"clientEmail"`
	ClientName  string `json:"clientName"`
	DateTime    string `json:"dateTime"`
	Duration    int    `json:"duration"`
	Description string `json:"description,omitempty"`
}

// Ptr is a small helper for the optional fields above.
func Ptr[T any](v T) *T { return &v }
