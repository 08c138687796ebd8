package entity

import "strings"

// Chaves da tabela de accountability.
const (
	KeyConvertedIntoMember = "convertedIntoAMember"
)

// LedgerEntry é a linha de um challenger na tabela de accountability, onde
// o coach acompanha os check-ins semanais do desafio.
type LedgerEntry struct {
	FirstName           string
	LastName            string
	ChallengeStartDate  string
	ChallengeEndDate    string
	ConvertedIntoMember string
	ChallengerFile      string
	GHLContactID        string
	Row                 int
}

func NewLedgerEntry(lead *Lead) *LedgerEntry {
	return &LedgerEntry{
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		ChallengeStartDate: lead.ChallengeStartDate,
		ChallengeEndDate:   lead.ChallengeEndDate,
		ChallengerFile:     lead.ChallengerFile,
		GHLContactID:       lead.GHLContactID,
	}
}

// DedupKey identifica um registro no ledger: nome, sobrenome e data de
// início do desafio.
func (e *LedgerEntry) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(e.FirstName)) + "|" +
		strings.ToLower(strings.TrimSpace(e.LastName)) + "|" +
		strings.TrimSpace(e.ChallengeStartDate)
}

func (e *LedgerEntry) ToRecord() Record {
	return Record{Row: e.Row, Fields: map[string]string{
		KeyFirstName:           e.FirstName,
		KeyLastName:            e.LastName,
		KeyChallengeStartDate:  e.ChallengeStartDate,
		KeyChallengeEndDate:    e.ChallengeEndDate,
		KeyConvertedIntoMember: e.ConvertedIntoMember,
		KeyChallengerFile:      e.ChallengerFile,
		KeyGHLContactID:        e.GHLContactID,
	}}
}

func LedgerEntryFromRecord(rec Record) *LedgerEntry {
	return &LedgerEntry{
		FirstName:           strings.TrimSpace(rec.Get(KeyFirstName)),
		LastName:            strings.TrimSpace(rec.Get(KeyLastName)),
		ChallengeStartDate:  strings.TrimSpace(rec.Get(KeyChallengeStartDate)),
		ChallengeEndDate:    strings.TrimSpace(rec.Get(KeyChallengeEndDate)),
		ConvertedIntoMember: rec.Get(KeyConvertedIntoMember),
		ChallengerFile:      rec.Get(KeyChallengerFile),
		GHLContactID:        strings.TrimSpace(rec.Get(KeyGHLContactID)),
		Row:                 rec.Row,
	}
}
