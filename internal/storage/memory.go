package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"therapy-booking/internal/model"
)

// The memory stores back tests and single-process deployments without
// Postgres. MemoryAppointments upholds the same atomicity contract as the
// exclusion constraint by serializing check-then-write per provider: two
// racing writes for the same provider cannot both pass the overlap check.
// Different providers never contend with each other.

type MemoryDirectory struct {
	mu        sync.RWMutex
	providers map[string]model.Provider
	services  map[string]model.Service
	clients   map[string]model.Client
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		providers: make(map[string]model.Provider),
		services:  make(map[string]model.Service),
		clients:   make(map[string]model.Client),
	}
}

func (d *MemoryDirectory) PutProvider(p model.Provider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.providers[p.ID] = p
}

func (d *MemoryDirectory) PutService(s model.Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services[s.ID] = s
}

func (d *MemoryDirectory) PutClient(c model.Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[c.ID] = c
}

func (d *MemoryDirectory) GetProvider(_ context.Context, id string) (model.Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.providers[id]
	if !ok {
		return model.Provider{}, ErrNotFound
	}
	return p, nil
}

func (d *MemoryDirectory) GetService(_ context.Context, id string) (model.Service, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.services[id]
	if !ok {
		return model.Service{}, ErrNotFound
	}
	return s, nil
}

func (d *MemoryDirectory) GetClient(_ context.Context, id string) (model.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.clients[id]
	if !ok {
		return model.Client{}, ErrNotFound
	}
	return c, nil
}

func (d *MemoryDirectory) ListProvidersForService(_ context.Context, serviceID string) ([]model.Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Provider
	for _, p := range d.providers {
		if p.Active && p.Offers(serviceID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type MemoryAvailability struct {
	mu        sync.RWMutex
	rules     map[string]map[time.Weekday]model.RecurringRule
	overrides map[string]map[string]model.DateOverride // provider -> yyyy-mm-dd
}

func NewMemoryAvailability() *MemoryAvailability {
	return &MemoryAvailability{
		rules:     make(map[string]map[time.Weekday]model.RecurringRule),
		overrides: make(map[string]map[string]model.DateOverride),
	}
}

func (a *MemoryAvailability) PutRule(r model.RecurringRule) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rules[r.ProviderID] == nil {
		a.rules[r.ProviderID] = make(map[time.Weekday]model.RecurringRule)
	}
	a.rules[r.ProviderID][r.Weekday] = r
}

func (a *MemoryAvailability) PutOverride(o model.DateOverride) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.overrides[o.ProviderID] == nil {
		a.overrides[o.ProviderID] = make(map[string]model.DateOverride)
	}
	a.overrides[o.ProviderID][o.Date.Format("2006-01-02")] = o
}

func (a *MemoryAvailability) GetOverrideForDate(_ context.Context, providerID string, date time.Time) (model.DateOverride, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	o, ok := a.overrides[providerID][date.Format("2006-01-02")]
	return o, ok, nil
}

func (a *MemoryAvailability) GetRuleForWeekday(_ context.Context, providerID string, weekday time.Weekday) (model.RecurringRule, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.rules[providerID][weekday]
	return r, ok, nil
}

type MemoryAppointments struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex // per provider
	byID  map[string]model.Appointment
}

func NewMemoryAppointments() *MemoryAppointments {
	return &MemoryAppointments{
		locks: make(map[string]*sync.Mutex),
		byID:  make(map[string]model.Appointment),
	}
}

func (s *MemoryAppointments) providerLock(providerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[providerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[providerID] = l
	}
	return l
}

func (s *MemoryAppointments) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryAppointments) FindOverlapping(_ context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlappingLocked(providerID, start, end, excludeID), nil
}

func (s *MemoryAppointments) overlappingLocked(providerID string, start, end time.Time, excludeID string) []model.Appointment {
	var out []model.Appointment
	for _, a := range s.byID {
		if a.ProviderID != providerID || a.ID == excludeID || !a.Status.Active() {
			continue
		}
		if start.Before(a.EndTime) && end.After(a.StartTime) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *MemoryAppointments) Insert(_ context.Context, a *model.Appointment) error {
	lock := s.providerLock(a.ProviderID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Status.Active() && len(s.overlappingLocked(a.ProviderID, a.StartTime, a.EndTime, "")) > 0 {
		return ErrSlotTaken
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.byID[a.ID] = *a
	return nil
}

func (s *MemoryAppointments) UpdateInterval(_ context.Context, id string, start, end time.Time, status model.Status) error {
	s.mu.Lock()
	a, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	lock := s.providerLock(a.ProviderID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok = s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status.Terminal() {
		return ErrStatusTerminal
	}
	if status.Active() && len(s.overlappingLocked(a.ProviderID, start, end, id)) > 0 {
		return ErrSlotTaken
	}
	a.StartTime = start
	a.EndTime = end
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	s.byID[id] = a
	return nil
}

func (s *MemoryAppointments) UpdateStatus(_ context.Context, id string, status model.Status, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status.Terminal() {
		return ErrStatusTerminal
	}
	a.Status = status
	a.Notes = notes
	a.UpdatedAt = time.Now().UTC()
	s.byID[id] = a
	return nil
}

func (s *MemoryAppointments) ListByProvider(_ context.Context, providerID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.byID {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
