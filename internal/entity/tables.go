package entity

// Nomes padrão das tabelas. Podem ser sobrescritos pela configuração.
const (
	CRMTableName            = "CRM Tracking Sheet"
	ArchiveTableName        = "Archived"
	AccountabilityTableName = "Accountability Tracking"
	PricingTableName        = "Pricing"
	StaffTableName          = "Staff"

	CRMHeaderRow            = 1
	AccountabilityHeaderRow = 5
	AccountabilityDataRow   = 9
)

// Headers da planilha CRM, na ordem das colunas.
var CRMHeaders = []string{
	"Status",
	"First Name",
	"Last Name",
	"Email Address",
	"Phone Number",
	"Lead Source",
	"Lead Generation Date",
	"Consultation Date",
	"Membership Start Date",
	"Membership End Date",
	"Challenge Start Date",
	"Challenge End Date",
	"Challenger File",
	"GHL Contact ID",
	"Notes",
}

var AccountabilityHeaders = []string{
	"First Name",
	"Last Name",
	"Challenge Start Date",
	"Challenge End Date",
	"Converted into a member?",
	"Challenger File",
	"GHL Contact ID",
}

// A coluna Status vem primeiro porque o filtro da view usa a coluna 1.
var PricingHeaders = []string{
	"Status",
	"First Name",
	"Last Name",
	"GHL Contact ID",
	"Membership Price",
	"Challenge Price",
	"Visible",
}

var StaffHeaders = []string{
	"First Name",
	"Last Name",
	"Email",
	"Role",
	"HighLevel User ID",
}

// Tables agrupa os schemas usados pelo serviço.
type Tables struct {
	CRM            TableSchema
	Archive        TableSchema
	Accountability TableSchema
	Pricing        TableSchema
	Staff          TableSchema
}

func DefaultTables() Tables {
	return Tables{
		CRM:            TableSchema{Name: CRMTableName, HeaderRow: CRMHeaderRow, Headers: CRMHeaders},
		Archive:        TableSchema{Name: ArchiveTableName, HeaderRow: 1, Headers: CRMHeaders},
		Accountability: TableSchema{Name: AccountabilityTableName, HeaderRow: AccountabilityHeaderRow, DataStartRow: AccountabilityDataRow, Headers: AccountabilityHeaders},
		Pricing:        TableSchema{Name: PricingTableName, HeaderRow: 1, Headers: PricingHeaders},
		Staff:          TableSchema{Name: StaffTableName, HeaderRow: 1, Headers: StaffHeaders},
	}
}

func (t Tables) All() []TableSchema {
	return []TableSchema{t.CRM, t.Archive, t.Accountability, t.Pricing, t.Staff}
}
