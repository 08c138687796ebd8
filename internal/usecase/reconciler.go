package usecase

import (
	"strings"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

type Action int

const (
	ActionNoop Action = iota
	ActionCreate
	ActionUpdate
	ActionArchive
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "CREATE"
	case ActionUpdate:
		return "UPDATE"
	case ActionArchive:
		return "ARCHIVE"
	default:
		return "NOOP"
	}
}

// Decision é o resultado da reconciliação. Target aponta para o registro
// existente (nil em CREATE/NOOP); Merged é o que deve ser gravado em
// CREATE/UPDATE.
type Decision struct {
	Action Action
	Target *entity.Lead
	Merged *entity.Lead
}

// FindLead procura o lead no snapshot: primeiro pelo contact ID, depois pelo
// nome completo normalizado. No fallback por nome, registros sem ID vêm
// primeiro; quando o lead recebido tem contact ID, só eles são aceitos, para
// nunca trocar o ID de outro contato homônimo.
func FindLead(incoming *entity.Lead, snapshot []*entity.Lead) *entity.Lead {
	id := strings.TrimSpace(incoming.GHLContactID)
	if id != "" {
		for _, l := range snapshot {
			if strings.TrimSpace(l.GHLContactID) == id {
				return l
			}
		}
	}

	name := incoming.NameKey()
	if name == "" {
		return nil
	}
	for _, l := range snapshot {
		if !l.HasContactID() && l.NameKey() == name {
			return l
		}
	}
	if id != "" {
		return nil
	}
	for _, l := range snapshot {
		if l.NameKey() == name {
			return l
		}
	}
	return nil
}

// Reconcile decide o que fazer com o lead recebido. archived indica que o
// CRM externo marcou o lead para arquivamento.
func Reconcile(incoming *entity.Lead, archived bool, snapshot []*entity.Lead) Decision {
	existing := FindLead(incoming, snapshot)

	switch {
	case existing != nil && archived:
		return Decision{Action: ActionArchive, Target: existing}
	case existing != nil:
		return Decision{Action: ActionUpdate, Target: existing, Merged: MergeLead(existing, incoming)}
	case archived:
		return Decision{Action: ActionNoop}
	default:
		created := incoming.Clone()
		created.Row = 0
		return Decision{Action: ActionCreate, Merged: created}
	}
}

// MergeLead devolve uma cópia de existing com os campos preenchidos de
// incoming por cima. Campos vazios de incoming não apagam nada.
func MergeLead(existing, incoming *entity.Lead) *entity.Lead {
	merged := existing.Clone()
	merged.MergeFrom(incoming)
	merged.Row = existing.Row
	return merged
}
