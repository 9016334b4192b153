package storage

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/eyedrop-checker/internal/errors"
)

// FamilyMember is one registered escalation recipient of an owner.
type FamilyMember struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Owner     string    `json:"owner" gorm:"size:128;index;not null"`
	Address   string    `json:"address" gorm:"size:255;not null"`
	Name      string    `json:"name" gorm:"size:128"`
	CreatedAt time.Time `json:"createdAt"`
}

// FamilyStore is the family member registry.
type FamilyStore interface {
	AddMember(ctx context.Context, owner, address, name string) (FamilyMember, error)
	RemoveMember(ctx context.Context, owner, id string) error
	ListMembers(ctx context.Context, owner string) ([]FamilyMember, error)
	// LookupByOwner returns the addresses registered by owner, oldest first.
	LookupByOwner(ctx context.Context, owner string) ([]string, error)
}

func newMember(owner, address, name string) (FamilyMember, error) {
	owner = strings.TrimSpace(owner)
	address = strings.TrimSpace(address)
	if owner == "" || address == "" {
		return FamilyMember{}, errors.ValidationError("storage", "family member needs an owner and an address")
	}
	return FamilyMember{
		ID:        uuid.NewString(),
		Owner:     owner,
		Address:   address,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func addresses(members []FamilyMember) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Address)
	}
	return out
}

// MemoryFamilyStore is an in-process FamilyStore.
type MemoryFamilyStore struct {
	mu      sync.RWMutex
	members []FamilyMember
}

// NewMemoryFamilyStore creates an empty registry.
func NewMemoryFamilyStore() *MemoryFamilyStore {
	return &MemoryFamilyStore{}
}

func (m *MemoryFamilyStore) AddMember(_ context.Context, owner, address, name string) (FamilyMember, error) {
	member, err := newMember(owner, address, name)
	if err != nil {
		return FamilyMember{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, member)
	return member, nil
}

func (m *MemoryFamilyStore) RemoveMember(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.members, func(fm FamilyMember) bool {
		return fm.ID == id && fm.Owner == owner
	})
	if idx < 0 {
		return errors.NotFound("storage", "family member %s not found", id)
	}
	m.members = slices.Delete(m.members, idx, idx+1)
	return nil
}

func (m *MemoryFamilyStore) ListMembers(_ context.Context, owner string) ([]FamilyMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FamilyMember
	for _, fm := range m.members {
		if fm.Owner == owner {
			out = append(out, fm)
		}
	}
	return out, nil
}

func (m *MemoryFamilyStore) LookupByOwner(ctx context.Context, owner string) ([]string, error) {
	members, err := m.ListMembers(ctx, owner)
	if err != nil {
		return nil, err
	}
	return addresses(members), nil
}
