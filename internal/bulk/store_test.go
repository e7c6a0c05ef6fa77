package bulk

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
)

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	mu       sync.Mutex
	byID     map[string]*entity.Contact
	seq      int
	base     time.Time
	pingErr  error
	writes   int
	// failWrite, when set, is consulted before every write with the 1-based
	// write number.
	failWrite func(ctx context.Context, n int) error
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*entity.Contact{}, base: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) beforeWrite(ctx context.Context) error {
	m.mu.Lock()
	m.writes++
	n := m.writes
	fail := m.failWrite
	m.mu.Unlock()
	if fail != nil {
		return fail(ctx, n)
	}
	return nil
}

func (m *memStore) Insert(ctx context.Context, c *entity.Contact) (string, error) {
	if err := m.beforeWrite(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = "gen-" + strconv.Itoa(len(m.byID)+1)
	}
	m.seq++
	cp := *c
	cp.IsActive = true
	cp.CreatedAt = m.base.Add(time.Duration(m.seq) * time.Second)
	cp.UpdatedAt = cp.CreatedAt
	m.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memStore) UpdateByID(ctx context.Context, id, ownerID string, f entity.Fields) (int64, error) {
	if err := m.beforeWrite(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.OwnerID != ownerID {
		return 0, nil
	}
	c.Name, c.Email, c.Phone, c.Address, c.Timezone = f.Name, f.Email, f.Phone, f.Address, f.Timezone
	return 1, nil
}

func (m *memStore) ListActive(_ context.Context, ownerID string, _ entity.ListFilter) ([]entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Contact{}
	for _, c := range m.byID {
		if c.OwnerID == ownerID && c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memStore) snapshot(ownerID string) map[string]entity.Fields {
	list, _ := m.ListActive(context.Background(), ownerID, entity.ListFilter{})
	out := make(map[string]entity.Fields, len(list))
	for _, c := range list {
		out[c.ID] = c.Fields()
	}
	return out
}
