package entity

import (
	"strings"
	"time"
)

// Chaves normalizadas das colunas do CRM.
const (
	KeyStatus              = "status"
	KeyFirstName           = "firstName"
	KeyLastName            = "lastName"
	KeyEmail               = "emailAddress"
	KeyPhone               = "phoneNumber"
	KeyLeadSource          = "leadSource"
	KeyLeadGenerationDate  = "leadGenerationDate"
	KeyConsultationDate    = "consultationDate"
	KeyMembershipStartDate = "membershipStartDate"
	KeyMembershipEndDate   = "membershipEndDate"
	KeyChallengeStartDate  = "challengeStartDate"
	KeyChallengeEndDate    = "challengeEndDate"
	KeyChallengerFile      = "challengerFile"
	KeyGHLContactID        = "ghlContactId"
)

// DateLayout é o formato das datas gravadas nas tabelas.
const DateLayout = "01/02/2006"

var dateLayouts = []string{
	DateLayout,
	"1/2/2006",
	"1/2/06",
	"2006-01-02",
	time.RFC3339,
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate aceita os formatos que aparecem nas planilhas antigas.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Lead é o registro central: um cliente (ou potencial cliente) da academia.
type Lead struct {
	Status              Status `json:"status"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	LeadSource          string `json:"lead_source"`
	LeadGenerationDate  string `json:"lead_generation_date"`
	ConsultationDate    string `json:"consultation_date"`
	MembershipStartDate string `json:"membership_start_date"`
	MembershipEndDate   string `json:"membership_end_date"`
	ChallengeStartDate  string `json:"challenge_start_date"`
	ChallengeEndDate    string `json:"challenge_end_date"`
	ChallengerFile      string `json:"challenger_file"`
	GHLContactID        string `json:"ghl_contact_id"`

	// Colunas que o serviço não conhece (anotações do dono da academia)
	// são preservadas aqui para sobreviver à reescrita completa do CRM.
	Extra map[string]string `json:"-"`

	// Row é a posição física na tabela; zero = ainda não persistido.
	Row int `json:"-"`
}

// FullName junta nome e sobrenome do jeito que a planilha mostra.
func (l *Lead) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(l.FirstName) + " " + strings.TrimSpace(l.LastName))
}

// NameKey é a identidade composta usada quando não há contact ID.
func (l *Lead) NameKey() string {
	return NormalizeName(l.FirstName + " " + l.LastName)
}

// NormalizeName reduz um nome completo a "first last" em minúsculas.
func NormalizeName(fullName string) string {
	return strings.ToLower(strings.Join(strings.Fields(fullName), " "))
}

func (l *Lead) HasContactID() bool {
	return strings.TrimSpace(l.GHLContactID) != ""
}

func (l *Lead) Clone() *Lead {
	out := *l
	if l.Extra != nil {
		out.Extra = make(map[string]string, len(l.Extra))
		for k, v := range l.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

func (l *Lead) fields() map[string]*string {
	return map[string]*string{
		KeyFirstName:           &l.FirstName,
		KeyLastName:            &l.LastName,
		KeyEmail:               &l.Email,
		KeyPhone:               &l.Phone,
		KeyLeadSource:          &l.LeadSource,
		KeyLeadGenerationDate:  &l.LeadGenerationDate,
		KeyConsultationDate:    &l.ConsultationDate,
		KeyMembershipStartDate: &l.MembershipStartDate,
		KeyMembershipEndDate:   &l.MembershipEndDate,
		KeyChallengeStartDate:  &l.ChallengeStartDate,
		KeyChallengeEndDate:    &l.ChallengeEndDate,
		KeyChallengerFile:      &l.ChallengerFile,
		KeyGHLContactID:        &l.GHLContactID,
	}
}

// ToRecord converte o lead para uma linha da tabela CRM.
func (l *Lead) ToRecord() Record {
	rec := Record{Row: l.Row, Fields: map[string]string{}}
	for k, v := range l.Extra {
		rec.Fields[k] = v
	}
	for key, ptr := range l.fields() {
		rec.Fields[key] = *ptr
	}
	rec.Fields[KeyStatus] = string(l.Status)
	return rec
}

// LeadFromRecord monta um lead a partir de uma linha da tabela CRM.
func LeadFromRecord(rec Record) *Lead {
	lead := &Lead{Row: rec.Row}
	known := lead.fields()
	for key, value := range rec.Fields {
		if key == KeyStatus {
			lead.Status = Status(strings.TrimSpace(value))
			continue
		}
		if ptr, ok := known[key]; ok {
			*ptr = strings.TrimSpace(value)
			continue
		}
		if lead.Extra == nil {
			lead.Extra = map[string]string{}
		}
		lead.Extra[key] = value
	}
	return lead
}

// MergeFrom aplica a política de sobrescrita não destrutiva: todo campo
// preenchido em incoming sobrescreve o campo do lead; campos vazios em
// incoming não mexem no que já existe.
func (l *Lead) MergeFrom(incoming *Lead) {
	if incoming == nil {
		return
	}
	dst := l.fields()
	for key, src := range incoming.fields() {
		if strings.TrimSpace(*src) != "" {
			*dst[key] = *src
		}
	}
	if incoming.Status != StatusNone {
		l.Status = incoming.Status
	}
	for k, v := range incoming.Extra {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if l.Extra == nil {
			l.Extra = map[string]string{}
		}
		l.Extra[k] = v
	}
}

// IsSeedRow identifica a linha de exemplo deixada pelo setup da planilha.
func (l *Lead) IsSeedRow() bool {
	return !l.HasContactID() && l.NameKey() == "jim jonas"
}
