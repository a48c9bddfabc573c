package phonebook

import (
	"context"
	"sort"
	"sync"
)

// MemoryBook is an in-process phonebook. It is its own Opener and
// DeviceLister, so one value can stand in for the whole OS binding.
type MemoryBook struct {
	mu        sync.Mutex
	entries   map[string]Entry
	devices   []Device
	mutations int
}

// NewMemoryBook creates an empty book exposing the given devices.
func NewMemoryBook(devices ...Device) *MemoryBook {
	return &MemoryBook{
		entries: make(map[string]Entry),
		devices: devices,
	}
}

// Open returns the book itself.
func (m *MemoryBook) Open(ctx context.Context) (PhoneBook, error) {
	return m, nil
}

// Devices returns the configured devices.
func (m *MemoryBook) Devices(ctx context.Context) ([]Device, error) {
	return StaticDevices(m.devices).Devices(ctx)
}

// Mutations returns how many successful Add/Update/Remove calls were made.
func (m *MemoryBook) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

func (m *MemoryBook) Contains(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[name]
	return ok, nil
}

func (m *MemoryBook) Entry(ctx context.Context, name string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (m *MemoryBook) Entries(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryBook) Add(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.Name]; ok {
		return ErrEntryExists
	}
	m.entries[entry.Name] = entry
	m.mutations++
	return nil
}

func (m *MemoryBook) Update(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.Name]; !ok {
		return ErrEntryNotFound
	}
	m.entries[entry.Name] = entry
	m.mutations++
	return nil
}

func (m *MemoryBook) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		return ErrEntryNotFound
	}
	delete(m.entries, name)
	m.mutations++
	return nil
}

// Close is a no-op; the book outlives every Open.
func (m *MemoryBook) Close() error {
	return nil
}
