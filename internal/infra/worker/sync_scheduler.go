package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/infra/http/middleware"
	"github.com/xavierca1/gymcrm-sync/internal/usecase"
)

var ErrSyncInProgress = errors.New("sync already running")

// SyncJob é o use case de sync com o HighLevel.
type SyncJob interface {
	Execute(ctx context.Context) (*usecase.SyncReport, error)
}

// SyncScheduler roda o sync periodicamente. Execuções nunca se sobrepõem:
// uma chamada manual durante um sync agendado recebe ErrSyncInProgress.
type SyncScheduler struct {
	job          SyncJob
	tickInterval time.Duration
	runAtStart   bool
	mu           sync.Mutex
}

func NewSyncScheduler(job SyncJob, interval time.Duration, runAtStart bool) *SyncScheduler {
	return &SyncScheduler{
		job:          job,
		tickInterval: interval,
		runAtStart:   runAtStart,
	}
}

func (s *SyncScheduler) Start(ctx context.Context) {
	if s.tickInterval <= 0 {
		log.Println("⚠️ Sync agendado desabilitado (intervalo zero)")
		return
	}
	log.Printf("🕒 Sync Scheduler iniciado (a cada %s)", s.tickInterval)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	if s.runAtStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Sync Scheduler encerrado")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			log.Println("⏭️ Sync anterior ainda rodando, pulando este ciclo")
			return
		}
		log.Printf("❌ Sync falhou: %v", err)
	}
}

// RunOnce roda um sync agora, se nenhum outro estiver em andamento.
func (s *SyncScheduler) RunOnce(ctx context.Context) (*usecase.SyncReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	started := time.Now()
	report, err := s.job.Execute(ctx)
	if err != nil {
		middleware.RecordSyncRun("error", time.Since(started))
		if usecase.ErrorCode(err) == usecase.CodeCRMUnavailable {
			middleware.RecordIntegrationError("highlevel")
		}
		return nil, err
	}

	middleware.RecordSyncRun("success", time.Since(started))
	middleware.RecordArchived(report.Archived)
	middleware.RecordLedgerRegistrations(report.LedgerRegistrations)
	return report, nil
}
