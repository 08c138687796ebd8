package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// WebhookLead é o lead do webhook do HighLevel já extraído do JSON. Os
// campos chegam com tipos soltos (número no telefone, nulls), então o
// payload é lido como mapa.
type WebhookLead struct {
	ContactID     string
	FirstName     string
	LastName      string
	FullName      string
	Email         string
	Phone         string
	Source        string
	PipelineStage string
	Status        string
	Calendar      *CalendarBooking
}

// ParseWebhookLead aceita os nomes com erro de digitação que o HighLevel
// envia ("pipleline_stage", "appoinmentStatus") e os corretos.
func ParseWebhookLead(body []byte) (*WebhookLead, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("json inválido: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("payload vazio")
	}

	lead := &WebhookLead{
		ContactID:     str(raw, "contact_id"),
		FirstName:     str(raw, "first_name"),
		LastName:      str(raw, "last_name"),
		FullName:      str(raw, "full_name"),
		Email:         str(raw, "email"),
		Phone:         str(raw, "phone"),
		Source:        str(raw, "contact_source", "source"),
		PipelineStage: str(raw, "pipleline_stage", "pipeline_stage"),
		Status:        str(raw, "status"),
	}

	if cal, ok := raw["calendar"].(map[string]any); ok {
		lead.Calendar = &CalendarBooking{
			Status:            str(cal, "status"),
			AppointmentStatus: str(cal, "appoinmentStatus", "appointmentStatus"),
			StartTime:         str(cal, "startTime"),
		}
	}

	if lead.FirstName == "" && lead.LastName == "" && lead.FullName != "" {
		lead.FirstName, lead.LastName = splitFullName(lead.FullName)
	}
	return lead, nil
}

// ToLead mapeia o payload para as colunas do CRM.
func (w *WebhookLead) ToLead() *entity.Lead {
	return &entity.Lead{
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		Email:        sanitizeEmail(w.Email),
		Phone:        w.Phone,
		LeadSource:   w.Source,
		GHLContactID: w.ContactID,
	}
}

func (w *WebhookLead) StatusSource() StatusSource {
	return StatusSource{
		PipelineStage:     w.PipelineStage,
		OpportunityStatus: w.Status,
		Calendar:          w.Calendar,
	}
}

func (w *WebhookLead) Name() string {
	if name := strings.TrimSpace(w.FirstName + " " + w.LastName); name != "" {
		return name
	}
	return w.ContactID
}

func str(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// splitFullName separa "First Middle Last" em "First Middle" e "Last".
func splitFullName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
