package services

import (
	"sync"
	"time"

	"swiftcart/internal/domain"
	"swiftcart/internal/repos"
)

const settingsTTL = 5 * time.Minute

// SettingsService serves the delivery-date configuration through a
// small expiring memoization. Admin updates call Invalidate so the
// next read sees fresh rows.
type SettingsService struct {
	Delivery *repos.DeliveryRepo

	mu        sync.Mutex
	value     []domain.DeliveryOption
	expiresAt time.Time
}

func NewSettingsService(delivery *repos.DeliveryRepo) *SettingsService {
	return &SettingsService{Delivery: delivery}
}

func (s *SettingsService) DeliveryOptions() ([]domain.DeliveryOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value != nil && time.Now().Before(s.expiresAt) {
		return s.value, nil
	}
	opts, err := s.Delivery.Options()
	if err != nil {
		return nil, err
	}
	s.value = opts
	s.expiresAt = time.Now().Add(settingsTTL)
	return opts, nil
}

func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.value = nil
	s.mu.Unlock()
}
