package services

import (
	"context"
	"log"
	"time"
)

// OrderExpiryService periodically sweeps orders past their deadline
type OrderExpiryService struct {
	orderService *OrderService
	interval     time.Duration
	stopChan     chan struct{}
	running      bool
}

// NewOrderExpiryService creates a new expiry sweep service
func NewOrderExpiryService(orderService *OrderService, interval time.Duration) *OrderExpiryService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OrderExpiryService{
		orderService: orderService,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (s *OrderExpiryService) Start() {
	if s.running {
		log.Println("⚠️ Order expiry service already running")
		return
	}
	s.running = true

	log.Printf("🚀 Order expiry service started (interval: %v)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Println("🛑 Order expiry service stopped")
				return
			}
		}
	}()
}

// Stop stops the background sweep loop
func (s *OrderExpiryService) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

// sweep runs one expiry pass
func (s *OrderExpiryService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	expired, disputed, err := s.orderService.ExpireStale(ctx)
	if err != nil {
		log.Printf("❌ [Expiry] Sweep failed: %v", err)
		return
	}
	if expired > 0 || disputed > 0 {
		log.Printf("⏰ [Expiry] Swept %d expired, %d escalated to disputed", expired, disputed)
	}
}
