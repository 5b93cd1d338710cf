package services

import (
	"context"
	"log"
	"time"
)

// TreasuryWorkflowService runs interval-triggered treasuries on schedule.
// Each check finds treasuries configured with an interval trigger and runs
// an allocation for those whose interval has elapsed since their last run.
type TreasuryWorkflowService struct {
	treasuryService *TreasuryService
	checkInterval   time.Duration
	stopChan        chan struct{}
	running         bool
}

// NewTreasuryWorkflowService creates a new workflow service
func NewTreasuryWorkflowService(treasuryService *TreasuryService, checkInterval time.Duration) *TreasuryWorkflowService {
	if checkInterval <= 0 {
		checkInterval = 60 * time.Second
	}
	return &TreasuryWorkflowService{
		treasuryService: treasuryService,
		checkInterval:   checkInterval,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the background workflow loop
func (s *TreasuryWorkflowService) Start() {
	if s.running {
		log.Println("⚠️ Treasury workflow service already running")
		return
	}
	s.running = true

	log.Printf("🚀 Treasury workflow service started (check interval: %v)", s.checkInterval)

	go func() {
		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runDue()
			case <-s.stopChan:
				log.Println("🛑 Treasury workflow service stopped")
				return
			}
		}
	}()
}

// Stop stops the background workflow loop
func (s *TreasuryWorkflowService) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

// runDue runs an allocation for every interval treasury whose interval has
// elapsed
func (s *TreasuryWorkflowService) runDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	treasuries, err := s.treasuryService.treasuryRepo.FindIntervalTriggered(ctx)
	if err != nil {
		log.Printf("❌ [Workflow] Failed to list interval treasuries: %v", err)
		return
	}

	now := time.Now()
	for _, treasury := range treasuries {
		if treasury.WorkflowInterval <= 0 {
			continue
		}
		if treasury.LastAllocationDate != nil {
			next := treasury.LastAllocationDate.Add(time.Duration(treasury.WorkflowInterval) * time.Minute)
			if now.Before(next) {
				continue
			}
		}

		log.Printf("🔄 [Workflow] Running scheduled allocation for treasury %s", treasury.ID)
		if _, err := s.treasuryService.ExecuteFundAllocation(ctx, treasury.ID); err != nil {
			log.Printf("❌ [Workflow] Allocation for treasury %s failed: %v", treasury.ID, err)
		}
	}
}
