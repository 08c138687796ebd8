package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

const challengerBody = `{"contact_id":"abc123","first_name":"Jane","last_name":"Doe","pipleline_stage":"New Client - Challenger"}`

// assertSingleChallenger confere que o contato abc123 terminou com uma linha
// no CRM, uma no ledger, as datas e o arquivo.
func assertSingleChallenger(t *testing.T, f *fixture) {
	t.Helper()
	leads := leadsWithID(f.crmLeads(t), "abc123")
	require.Len(t, leads, 1)
	assert.Equal(t, entity.StatusChallengeSignUp, leads[0].Status)
	assert.Equal(t, "03/10/2025", leads[0].ChallengeStartDate)
	assert.Equal(t, "04/21/2025", leads[0].ChallengeEndDate)
	assert.Equal(t, "https://files.example/doc-1", leads[0].ChallengerFile)

	entries := f.ledgerRows(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "03/10/2025", entries[0].ChallengeStartDate)
	assert.Equal(t, "https://files.example/doc-1", entries[0].ChallengerFile)
}

func TestWebhookAndSyncRacingOnNewChallenger(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		f.allowDocuments()
		f.expectPipeline(opportunity("abc123", "s-chal"))
		f.crm.On("GetContact", mock.Anything, "abc123").Return(&entity.Contact{ID: "abc123", FirstName: "Jane", LastName: "Doe"}, nil)
		f.publisher.On("PublishLeadEvent", mock.Anything, mock.Anything).Return(nil)
		ctx := context.Background()

		var wg sync.WaitGroup
		var webhookErr, syncErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, webhookErr = f.webhook().Execute(ctx, WebhookLeadInput{APIKey: "secret", Body: []byte(challengerBody)})
		}()
		go func() {
			defer wg.Done()
			_, syncErr = f.sync().Execute(ctx)
		}()
		wg.Wait()

		require.NoError(t, webhookErr)
		require.NoError(t, syncErr)
		assertSingleChallenger(t, f)
	}
}

func TestConcurrentWebhookDeliveriesOfNewChallenger(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		f.allowDocuments()
		f.publisher.On("PublishLeadEvent", mock.Anything, mock.Anything).Return(nil)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for n := range errs {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, errs[n] = f.webhook().Execute(ctx, WebhookLeadInput{APIKey: "secret", Body: []byte(challengerBody)})
			}(n)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		assertSingleChallenger(t, f)
		f.docs.AssertNumberOfCalls(t, "CreateFromTemplate", 1)
	}
}
