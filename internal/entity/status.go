package entity

import "regexp"

// Status é o status interno do lead, derivado do estágio do pipeline e de
// sinais auxiliares do CRM externo.
type Status string

const (
	StatusNone                  Status = ""
	StatusNewLead               Status = "New Lead"
	StatusScheduledAppointments Status = "Scheduled Appointments"
	StatusChallengeSignUp       Status = "Challenge Sign-Up"
	StatusMemberSignUp          Status = "Member Sign-Up"
	StatusNoShow                Status = "No-Show"
	StatusShowNoClose           Status = "Show, No-Close"
	StatusNotAGoodFit           Status = "Not a Good Fit"
	StatusCancelledMembership   Status = "Cancelled Membership"
	StatusArchived              Status = "Archived"
)

// Estágios do pipeline no HighLevel.
const (
	StageScheduledAppointment = "Scheduled Appointment"
	StageNewClientChallenger  = "New Client - Challenger"
	StageNewClientMember      = "New Client - Member"
	StageNoShow               = "No show"
	StageArchive              = "Archive"
	StageNewLead              = "New Lead"
	StageCancelledMembership  = "Cancelled Membership"
)

// Status da oportunidade no HighLevel.
const (
	OpportunityAbandoned = "abandoned"
	OpportunityLost      = "lost"
)

// A coluna de status é editada à mão, então a comparação é tolerante.
var (
	memberSignUpPattern    = regexp.MustCompile(`(?i)Member Sign[ -]+Up`)
	challengeSignUpPattern = regexp.MustCompile(`(?i)Challenge Sign[ -]+Up`)
)

func (s Status) IsMemberSignUp() bool {
	return memberSignUpPattern.MatchString(string(s))
}

func (s Status) IsChallengeSignUp() bool {
	return challengeSignUpPattern.MatchString(string(s))
}

func (s Status) IsCancelledMembership() bool {
	return s == StatusCancelledMembership
}

// HiddenInPricing lista os status escondidos na view de preços: só
// challengers e membros aparecem.
var HiddenInPricing = map[Status]bool{
	StatusNone:                  true,
	StatusNewLead:               true,
	StatusNotAGoodFit:           true,
	StatusShowNoClose:           true,
	StatusNoShow:                true,
	StatusScheduledAppointments: true,
	StatusArchived:              true,
	StatusCancelledMembership:   true,
}
