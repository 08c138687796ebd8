package entity

import "strings"

const (
	KeyMembershipPrice = "membershipPrice"
	KeyChallengePrice  = "challengePrice"
	KeyVisible         = "visible"
)

// PricingRow é a linha da tabela derivada de preços. Os preços são digitados
// pelo dono da academia; o resto é copiado do CRM.
type PricingRow struct {
	Status          Status
	FirstName       string
	LastName        string
	GHLContactID    string
	MembershipPrice string
	ChallengePrice  string
	Visible         bool
	Row             int
}

// JoinKey liga a linha de preço ao lead: contact ID quando existe, nome
// completo para linhas antigas sem ID.
func (p *PricingRow) JoinKey() string {
	return RecordKey(p.ToRecord())
}

// LeadJoinKey é a mesma chave calculada a partir de um lead.
func LeadJoinKey(l *Lead) string {
	return RecordKey(l.ToRecord())
}

func (p *PricingRow) ToRecord() Record {
	visible := "FALSE"
	if p.Visible {
		visible = "TRUE"
	}
	return Record{Row: p.Row, Fields: map[string]string{
		KeyStatus:          string(p.Status),
		KeyFirstName:       p.FirstName,
		KeyLastName:        p.LastName,
		KeyGHLContactID:    p.GHLContactID,
		KeyMembershipPrice: p.MembershipPrice,
		KeyChallengePrice:  p.ChallengePrice,
		KeyVisible:         visible,
	}}
}

func PricingRowFromRecord(rec Record) *PricingRow {
	return &PricingRow{
		Status:          Status(strings.TrimSpace(rec.Get(KeyStatus))),
		FirstName:       strings.TrimSpace(rec.Get(KeyFirstName)),
		LastName:        strings.TrimSpace(rec.Get(KeyLastName)),
		GHLContactID:    strings.TrimSpace(rec.Get(KeyGHLContactID)),
		MembershipPrice: rec.Get(KeyMembershipPrice),
		ChallengePrice:  rec.Get(KeyChallengePrice),
		Visible:         strings.EqualFold(strings.TrimSpace(rec.Get(KeyVisible)), "true"),
		Row:             rec.Row,
	}
}
