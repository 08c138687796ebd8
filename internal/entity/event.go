package entity

import "time"

// LeadEvent é publicado na fila quando um lead muda de status.
type LeadEvent struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	PreviousStatus Status    `json:"previous_status"`
	Status         Status    `json:"status"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	GHLContactID   string    `json:"ghl_contact_id"`
	ChallengerFile string    `json:"challenger_file,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Document é o artefato provisionado para um challenger (planilha de
// acompanhamento copiada do template).
type Document struct {
	ID     string
	Name   string
	Folder string
	URL    string
}
