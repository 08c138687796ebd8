package entity

const (
	KeyStaffEmail  = "email"
	KeyStaffRole   = "role"
	KeyStaffUserID = "highlevelUserId"
)

// StaffMember é um usuário da location no HighLevel (coach, recepção, dono).
type StaffMember struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
	UserID    string
}

func (s *StaffMember) ToRecord() Record {
	return Record{Fields: map[string]string{
		KeyFirstName:   s.FirstName,
		KeyLastName:    s.LastName,
		KeyStaffEmail:  s.Email,
		KeyStaffRole:   s.Role,
		KeyStaffUserID: s.UserID,
	}}
}
