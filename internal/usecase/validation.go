package usecase

import (
	"fmt"
	"net/mail"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateWebhookLead exige uma identidade (contact ID ou nome completo).
// O resto do payload é opcional; e-mail inválido é descartado em
// sanitizeEmail, não rejeitado.
func ValidateWebhookLead(lead *WebhookLead) []ValidationError {
	var errors []ValidationError

	hasName := strings.TrimSpace(lead.FirstName) != "" || strings.TrimSpace(lead.LastName) != ""
	if strings.TrimSpace(lead.ContactID) == "" && !hasName {
		errors = append(errors, ValidationError{"contact_id", "is required when no name is given"})
	}

	if len(lead.FirstName) > 200 || len(lead.LastName) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	return errors
}

func sanitizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func validationMessage(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
