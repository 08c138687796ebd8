package entity

// Visão do CRM externo (HighLevel), já desacoplada do formato da API.

type Stage struct {
	ID   string
	Name string
}

type Pipeline struct {
	ID     string
	Name   string
	Stages []Stage
}

// StageName resolve o nome de um estágio pelo ID.
func (p *Pipeline) StageName(stageID string) string {
	for _, s := range p.Stages {
		if s.ID == stageID {
			return s.Name
		}
	}
	return ""
}

func (p *Pipeline) HasStage(name string) bool {
	for _, s := range p.Stages {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Contact é o contato do HighLevel. DateAdded vem em RFC3339.
type Contact struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Source    string
	DateAdded string
}

// Opportunity é um card do pipeline. StageName já vem resolvido.
type Opportunity struct {
	ID        string
	Name      string
	Status    string
	StageID   string
	StageName string
	Source    string
	Contact   Contact
}

type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Role      string
}

func (u *User) ToStaffMember() *StaffMember {
	return &StaffMember{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		UserID:    u.ID,
	}
}
