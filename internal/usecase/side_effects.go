package usecase

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

const DefaultChallengeLengthWeeks = 6

// StatusEffects executa as reações a um status: datas de matrícula,
// início de desafio com registro no ledger, cancelamento. Cada reação tem
// guarda própria, então rodar duas vezes não muda nada na segunda.
type StatusEffects struct {
	Calendar             Calendar
	ChallengeLengthWeeks int
	Ledger               *AccountabilityLedger
	Locker               Locker
	LockWait             time.Duration

	// Store e CRM permitem reler o lead sob o lock do ledger. Sem eles, a
	// cópia do chamador é a única fonte.
	Store entity.RowStore
	CRM   entity.TableSchema
}

type EffectResult struct {
	MembershipStarted bool
	ChallengeStarted  bool
	LedgerRegistered  bool
	MembershipEnded   bool
}

func (r EffectResult) Mutated() bool {
	return r.MembershipStarted || r.ChallengeStarted || r.MembershipEnded
}

// Pending indica que o lead tem uma reação ainda não aplicada (por exemplo,
// porque o lock do ledger não saiu na execução anterior).
func (e *StatusEffects) Pending(lead *entity.Lead) bool {
	switch {
	case lead.Status.IsMemberSignUp() && lead.MembershipStartDate == "":
		return true
	case lead.Status.IsChallengeSignUp() && lead.ChallengeStartDate == "":
		return true
	case lead.Status.IsCancelledMembership() && lead.MembershipEndDate == "":
		return true
	}
	return false
}

func (e *StatusEffects) challengeDays() int {
	weeks := e.ChallengeLengthWeeks
	if weeks <= 0 {
		weeks = DefaultChallengeLengthWeeks
	}
	return weeks * 7
}

// Apply muta o lead conforme o status atual. Se o lock do ledger não for
// obtido, o desafio não é iniciado (as datas ficam vazias) e o erro volta
// com código LOCK_TIMEOUT para a próxima execução tentar de novo.
func (e *StatusEffects) Apply(ctx context.Context, lead *entity.Lead) (EffectResult, error) {
	var result EffectResult
	status := lead.Status

	if status.IsMemberSignUp() && lead.MembershipStartDate == "" {
		log.Printf("🏋️ Member sign-up de %s: data de início da matrícula", lead.FullName())
		lead.MembershipStartDate = e.Calendar.Datestamp()
		result.MembershipStarted = true
	}

	if status.IsChallengeSignUp() && lead.ChallengeStartDate == "" {
		registered, err := e.startChallenge(ctx, lead)
		if err != nil {
			return result, err
		}
		result.ChallengeStarted = true
		result.LedgerRegistered = registered
	}

	if status.IsCancelledMembership() && lead.MembershipEndDate == "" {
		log.Printf("🚪 Matrícula cancelada de %s: data de fim", lead.FullName())
		lead.MembershipEndDate = e.Calendar.Datestamp()
		result.MembershipEnded = true
	}

	return result, nil
}

func (e *StatusEffects) startChallenge(ctx context.Context, lead *entity.Lead) (bool, error) {
	log.Printf("🔥 Novo challenger %s: datas e accountability", lead.FullName())

	wait := e.LockWait
	if wait <= 0 {
		wait = DefaultLockWait
	}
	release, err := e.Locker.TryLock(ctx, LockKeyLedger, wait)
	if err != nil {
		log.Printf("❌ [lockError] ledger para %s: %v", lead.FullName(), err)
		return false, lockError(LockKeyLedger, err)
	}
	defer release()

	// Outro escritor pode ter iniciado o desafio depois da leitura do
	// chamador; nesse caso as datas e o arquivo dele valem.
	if current := e.currentLead(ctx, lead); current != nil && current.ChallengeStartDate != "" {
		log.Printf("ℹ️ desafio de %s já iniciado em %s, reaproveitando", lead.FullName(), current.ChallengeStartDate)
		lead.ChallengeStartDate = current.ChallengeStartDate
		lead.ChallengeEndDate = current.ChallengeEndDate
		if lead.ChallengerFile == "" {
			lead.ChallengerFile = current.ChallengerFile
		}
		return false, nil
	}

	lead.ChallengeStartDate = e.Calendar.Datestamp()
	lead.ChallengeEndDate = e.Calendar.DatestampAfter(e.challengeDays())

	if e.Ledger == nil {
		return false, nil
	}
	registered, err := e.Ledger.Register(ctx, lead)
	if err != nil {
		lead.ChallengeStartDate = ""
		lead.ChallengeEndDate = ""
		return false, err
	}
	return registered, nil
}

// currentLead relê o lead no CRM. Erro de leitura só é logado: o dedup do
// ledger ainda evita a duplicata.
func (e *StatusEffects) currentLead(ctx context.Context, lead *entity.Lead) *entity.Lead {
	if e.Store == nil || e.CRM.Name == "" {
		return nil
	}
	records, err := e.Store.ReadRows(ctx, e.CRM.Name, e.CRM.ReadOptions())
	if err != nil {
		log.Printf("⚠️ não foi possível reler %s no %s: %v", lead.FullName(), e.CRM.Name, err)
		return nil
	}
	snapshot := make([]*entity.Lead, 0, len(records))
	for _, rec := range records {
		snapshot = append(snapshot, entity.LeadFromRecord(rec))
	}
	return FindLead(lead, snapshot)
}
