package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"GHL Contact ID":           "ghlContactId",
		"First Name":               "firstName",
		"Email Address":            "emailAddress",
		"Converted into a member?": "convertedIntoAMember",
		"1st Check-in":             "stCheckin",
		"  Status ":                "status",
		"HighLevel User ID":        "highlevelUserId",
	}
	for header, want := range cases {
		assert.Equal(t, want, NormalizeHeader(header), header)
	}
}

func TestCRMHeadersMatchLeadKeys(t *testing.T) {
	keys := DefaultTables().CRM.Keys()
	lead := &Lead{}
	for key := range lead.fields() {
		assert.Contains(t, keys, key)
	}
	assert.Contains(t, keys, KeyStatus)
}

func TestLeadRecordRoundTripKeepsExtraColumns(t *testing.T) {
	rec := Record{Row: 7, Fields: map[string]string{
		KeyStatus:       "Member Sign-Up",
		KeyFirstName:    " Jane ",
		KeyLastName:     "Doe",
		KeyGHLContactID: "abc",
		"notes":         "paga em dinheiro",
	}}

	lead := LeadFromRecord(rec)
	assert.Equal(t, 7, lead.Row)
	assert.Equal(t, "Jane", lead.FirstName)
	assert.Equal(t, StatusMemberSignUp, lead.Status)
	assert.Equal(t, "paga em dinheiro", lead.Extra["notes"])

	back := lead.ToRecord()
	assert.Equal(t, 7, back.Row)
	assert.Equal(t, "paga em dinheiro", back.Get("notes"))
	assert.Equal(t, "abc", back.Get(KeyGHLContactID))
}

func TestMergeFromIsNonDestructive(t *testing.T) {
	existing := &Lead{FirstName: "Jane", LastName: "Doe", Email: "jane@gym.com", Phone: "555"}
	existing.Extra = map[string]string{"notes": "vip"}

	existing.MergeFrom(&Lead{Phone: "777", Email: "", Status: StatusNewLead})

	assert.Equal(t, "jane@gym.com", existing.Email)
	assert.Equal(t, "777", existing.Phone)
	assert.Equal(t, StatusNewLead, existing.Status)
	assert.Equal(t, "vip", existing.Extra["notes"])
}

func TestNameKeyAndSeedRow(t *testing.T) {
	lead := &Lead{FirstName: "  Jim", LastName: "JONAS "}
	assert.Equal(t, "jim jonas", lead.NameKey())
	assert.True(t, lead.IsSeedRow())

	lead.GHLContactID = "x1"
	assert.False(t, lead.IsSeedRow())
}

func TestParseDateAcceptsSheetFormats(t *testing.T) {
	loc := time.UTC
	for _, v := range []string{"03/04/2025", "3/4/2025", "2025-03-04"} {
		got, ok := ParseDate(v, loc)
		require.True(t, ok, v)
		assert.Equal(t, "03/04/2025", FormatDate(got))
	}
	_, ok := ParseDate("ontem", loc)
	assert.False(t, ok)
}

func TestStatusMatchersAreLenient(t *testing.T) {
	assert.True(t, Status("member sign up").IsMemberSignUp())
	assert.True(t, Status("Member Sign-Up").IsMemberSignUp())
	assert.True(t, Status("CHALLENGE SIGN - UP").IsChallengeSignUp())
	assert.False(t, StatusNewLead.IsChallengeSignUp())
}

func TestLedgerDedupKey(t *testing.T) {
	a := &LedgerEntry{FirstName: "Jane", LastName: "Doe", ChallengeStartDate: "01/02/2025"}
	b := &LedgerEntry{FirstName: "jane ", LastName: "DOE", ChallengeStartDate: "01/02/2025"}
	assert.Equal(t, a.DedupKey(), b.DedupKey())
}

func TestPricingJoinKey(t *testing.T) {
	row := &PricingRow{GHLContactID: "abc", FirstName: "X"}
	assert.Equal(t, LeadJoinKey(&Lead{GHLContactID: "abc"}), row.JoinKey())

	legacy := &PricingRow{FirstName: "Jim", LastName: "Jonas"}
	assert.Equal(t, LeadJoinKey(&Lead{FirstName: "jim", LastName: "jonas"}), legacy.JoinKey())
}

func TestPipelineStageLookup(t *testing.T) {
	p := &Pipeline{ID: "p1", Stages: []Stage{{ID: "s1", Name: StageNewLead}, {ID: "s2", Name: StageNewClientChallenger}}}
	assert.Equal(t, StageNewClientChallenger, p.StageName("s2"))
	assert.Equal(t, "", p.StageName("nope"))
	assert.True(t, p.HasStage(StageNewClientChallenger))
}
