package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

func leadsWithID(leads []*entity.Lead, id string) []*entity.Lead {
	var out []*entity.Lead
	for _, l := range leads {
		if l.GHLContactID == id {
			out = append(out, l)
		}
	}
	return out
}

func TestUpdateRowsPrefersExactContactID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCRM(t,
		&entity.Lead{FirstName: "John", LastName: "Smith", Status: entity.StatusNewLead},
		&entity.Lead{FirstName: "John", LastName: "Smith", GHLContactID: "X", Status: entity.StatusNewLead},
	)

	n, err := f.rows.UpdateRows(ctx, f.tables.CRM, []*entity.Lead{
		{FirstName: "John", LastName: "Smith", GHLContactID: "X", Status: entity.StatusNoShow},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	leads := f.crmLeads(t)
	require.Len(t, leads, 2)
	assert.Empty(t, leads[0].GHLContactID)
	assert.Equal(t, entity.StatusNewLead, leads[0].Status)
	require.Len(t, leadsWithID(leads, "X"), 1)
	assert.Equal(t, entity.StatusNoShow, leads[1].Status)
}

func TestUpdateRowsLetsNewContactAdoptLegacyRow(t *testing.T) {
	f := newFixture(t)
	f.seedCRM(t,
		&entity.Lead{FirstName: "John", LastName: "Smith", Status: entity.StatusNewLead},
		&entity.Lead{FirstName: "John", LastName: "Smith", GHLContactID: "X", Status: entity.StatusNewLead},
	)

	_, err := f.rows.UpdateRows(context.Background(), f.tables.CRM, []*entity.Lead{
		{FirstName: "John", LastName: "Smith", GHLContactID: "Y", Status: entity.StatusScheduledAppointments},
	})
	require.NoError(t, err)

	leads := f.crmLeads(t)
	require.Len(t, leads, 2)
	assert.Equal(t, "Y", leads[0].GHLContactID)
	assert.Equal(t, entity.StatusScheduledAppointments, leads[0].Status)
	assert.Equal(t, "X", leads[1].GHLContactID)
	assert.Equal(t, entity.StatusNewLead, leads[1].Status)
}

func TestUpdateRowsKeepsFieldsWrittenByOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCRM(t, &entity.Lead{FirstName: "Jane", LastName: "Doe", GHLContactID: "c1", Status: entity.StatusChallengeSignUp})
	stale := f.crmLeads(t)[0]

	fresh := *stale
	fresh.ChallengeStartDate = "03/10/2025"
	fresh.ChallengeEndDate = "04/21/2025"
	fresh.ChallengerFile = "https://files.example/doc-1"
	_, err := f.rows.UpdateRows(ctx, f.tables.CRM, []*entity.Lead{&fresh})
	require.NoError(t, err)

	// cópia antiga, sem o arquivo, mudando só o telefone
	stale.Phone = "555-0100"
	_, err = f.rows.UpdateRows(ctx, f.tables.CRM, []*entity.Lead{stale})
	require.NoError(t, err)

	leads := f.crmLeads(t)
	require.Len(t, leads, 1)
	assert.Equal(t, "555-0100", leads[0].Phone)
	assert.Equal(t, "03/10/2025", leads[0].ChallengeStartDate)
	assert.Equal(t, "https://files.example/doc-1", leads[0].ChallengerFile)
	assert.Equal(t, "https://files.example/doc-1", stale.ChallengerFile)
}

func TestRemoveLeadsOnlyTakesExactRows(t *testing.T) {
	f := newFixture(t)
	f.seedCRM(t,
		&entity.Lead{FirstName: "John", LastName: "Smith"},
		&entity.Lead{FirstName: "John", LastName: "Smith", GHLContactID: "X"},
		&entity.Lead{FirstName: "Ann", LastName: "Poe"},
		&entity.Lead{FirstName: "Ann", LastName: "Poe"},
	)

	removed, err := f.rows.RemoveLeads(context.Background(), f.tables.CRM, []*entity.Lead{
		{FirstName: "John", LastName: "Smith", GHLContactID: "X"},
		{FirstName: "Ann", LastName: "Poe"},
		{FirstName: "Ghost", LastName: "Lead", GHLContactID: "Z"},
	})
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	leads := f.crmLeads(t)
	assert.Equal(t, []string{"John Smith", "Ann Poe"}, names(leads))
	assert.Empty(t, leads[0].GHLContactID)
}

func TestReplaceAllMergesAndKeepsRowsWrittenMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCRM(t,
		&entity.Lead{FirstName: "Jane", LastName: "Doe", GHLContactID: "c1", Status: entity.StatusChallengeSignUp, ChallengerFile: "https://files.example/doc-1"},
		&entity.Lead{FirstName: "Old", LastName: "Timer", Status: entity.StatusNewLead},
		&entity.Lead{FirstName: "Ann", LastName: "Poe", GHLContactID: "c9", Status: entity.StatusNewLead},
	)
	seen := map[string]bool{"c1": true}

	err := f.rows.ReplaceAll(ctx, f.tables.CRM, []*entity.Lead{
		{FirstName: "Jane", LastName: "Doe", GHLContactID: "c1", Status: entity.StatusChallengeSignUp, ChallengeStartDate: "03/10/2025"},
	}, func(l *entity.Lead) bool { return l.GHLContactID != "" && !seen[l.GHLContactID] })
	require.NoError(t, err)

	leads := f.crmLeads(t)
	assert.Equal(t, []string{"Jane Doe", "Ann Poe"}, names(leads))
	assert.Equal(t, "03/10/2025", leads[0].ChallengeStartDate)
	assert.Equal(t, "https://files.example/doc-1", leads[0].ChallengerFile)
	assert.Equal(t, "c9", leads[1].GHLContactID)
}
