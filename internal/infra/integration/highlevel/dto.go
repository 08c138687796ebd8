package highlevel

import (
	"encoding/json"
	"strings"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// Formatos da API v1 do HighLevel (rest.gohighlevel.com/v1).

type stageDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type pipelineDTO struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Stages []stageDTO `json:"stages"`
}

type pipelinesResponse struct {
	Pipelines []pipelineDTO `json:"pipelines"`
}

type contactDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Source    string `json:"source"`
	DateAdded string `json:"dateAdded"`
}

type contactResponse struct {
	Contact contactDTO `json:"contact"`
}

type opportunityDTO struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	PipelineID      string     `json:"pipelineId"`
	PipelineStageID string     `json:"pipelineStageId"`
	Source          string     `json:"source"`
	Contact         contactDTO `json:"contact"`
}

// pageMeta traz o cursor da próxima página. startAfter vem como número
// (epoch em ms), startAfterId como string.
type pageMeta struct {
	Total        int             `json:"total"`
	NextPageURL  string          `json:"nextPageUrl"`
	StartAfterID string          `json:"startAfterId"`
	StartAfter   json.RawMessage `json:"startAfter"`
}

type opportunitiesResponse struct {
	Opportunities []opportunityDTO `json:"opportunities"`
	Meta          pageMeta         `json:"meta"`
}

type userRolesDTO struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

type userDTO struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
	Roles     userRolesDTO `json:"roles"`
}

type usersResponse struct {
	Users []userDTO `json:"users"`
}

func (m pageMeta) startAfter() string {
	return strings.Trim(strings.TrimSpace(string(m.StartAfter)), `"`)
}

func (p pipelineDTO) toEntity() entity.Pipeline {
	out := entity.Pipeline{ID: p.ID, Name: p.Name}
	for _, s := range p.Stages {
		out.Stages = append(out.Stages, entity.Stage{ID: s.ID, Name: s.Name})
	}
	return out
}

func (c contactDTO) toEntity() entity.Contact {
	first, last := c.FirstName, c.LastName
	if first == "" && last == "" && c.Name != "" {
		parts := strings.Fields(c.Name)
		if len(parts) > 0 {
			first = strings.Join(parts[:len(parts)-1], " ")
			last = parts[len(parts)-1]
			if first == "" {
				first, last = last, ""
			}
		}
	}
	return entity.Contact{
		ID:        c.ID,
		FirstName: first,
		LastName:  last,
		Email:     c.Email,
		Phone:     c.Phone,
		Source:    c.Source,
		DateAdded: c.DateAdded,
	}
}

func (o opportunityDTO) toEntity() entity.Opportunity {
	return entity.Opportunity{
		ID:      o.ID,
		Name:    o.Name,
		Status:  o.Status,
		StageID: o.PipelineStageID,
		Source:  o.Source,
		Contact: o.Contact.toEntity(),
	}
}

func (u userDTO) toEntity() entity.User {
	role := u.Role
	if role == "" {
		role = u.Roles.Role
	}
	first, last := u.FirstName, u.LastName
	if first == "" && last == "" {
		c := contactDTO{Name: u.Name}.toEntity()
		first, last = c.FirstName, c.LastName
	}
	return entity.User{ID: u.ID, FirstName: first, LastName: last, Email: u.Email, Role: role}
}
