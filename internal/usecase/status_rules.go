package usecase

import "github.com/xavierca1/gymcrm-sync/internal/entity"

// Path é o ponto de entrada que observou o lead. Webhook e sync tratam o
// estágio Archive de formas diferentes.
type Path int

const (
	PathWebhook Path = iota
	PathSync
)

func (p Path) String() string {
	if p == PathSync {
		return "sync"
	}
	return "webhook"
}

// CalendarBooking é o sub-objeto "calendar" do webhook.
type CalendarBooking struct {
	Status            string
	AppointmentStatus string
	StartTime         string
}

func (c *CalendarBooking) Confirmed() bool {
	return c != nil && c.Status == "booked" && c.AppointmentStatus == "confirmed"
}

// StatusSource reúne os campos externos que definem o status.
type StatusSource struct {
	PipelineStage     string
	OpportunityStatus string
	Calendar          *CalendarBooking
}

// Regras que decidiram o status, para log e testes.
const (
	RuleCalendar  = "calendar"
	RuleAbandoned = "abandoned"
	RuleLost      = "lost"
	RuleStage     = "stage"
	RuleDefault   = "default"
)

type StatusDecision struct {
	Status entity.Status
	Rule   string
	// Consultation vem preenchido só quando a regra do calendário decidiu.
	Consultation string
}

func (d StatusDecision) Changed(current entity.Status) bool {
	return d.Status != current
}

var stageStatus = map[string]entity.Status{
	entity.StageScheduledAppointment: entity.StatusScheduledAppointments,
	entity.StageNewClientChallenger:  entity.StatusChallengeSignUp,
	entity.StageNewClientMember:      entity.StatusMemberSignUp,
	entity.StageNoShow:               entity.StatusNoShow,
	entity.StageNewLead:              entity.StatusNewLead,
	entity.StageCancelledMembership:  entity.StatusCancelledMembership,
}

// ResolveStatus aplica a tabela de decisão (a primeira regra que casa vence).
// current é o status atual do registro e é devolvido quando a regra manda
// preservar: Archive no webhook, estágio desconhecido no sync.
func ResolveStatus(src StatusSource, path Path, current entity.Status) StatusDecision {
	if src.Calendar.Confirmed() {
		return StatusDecision{
			Status:       entity.StatusScheduledAppointments,
			Rule:         RuleCalendar,
			Consultation: src.Calendar.StartTime,
		}
	}

	switch src.OpportunityStatus {
	case entity.OpportunityAbandoned:
		return StatusDecision{Status: entity.StatusNotAGoodFit, Rule: RuleAbandoned}
	case entity.OpportunityLost:
		// "lost" pode ser No-Show ou Show, No-Close; fica o segundo.
		return StatusDecision{Status: entity.StatusShowNoClose, Rule: RuleLost}
	}

	if src.PipelineStage == entity.StageArchive {
		if path == PathSync {
			return StatusDecision{Status: entity.StatusArchived, Rule: RuleStage}
		}
		return StatusDecision{Status: current, Rule: RuleStage}
	}

	if status, ok := stageStatus[src.PipelineStage]; ok {
		return StatusDecision{Status: status, Rule: RuleStage}
	}

	if path == PathSync {
		return StatusDecision{Status: current, Rule: RuleDefault}
	}
	return StatusDecision{Status: entity.StatusNewLead, Rule: RuleDefault}
}
