package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store used in tests and when the service
// runs without a database. All reads return copies.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*User
	roles   map[string]*Role
	perms   map[string]*Permission
	grants  map[string]map[string]struct{} // roleID -> permission ids
	revoked map[string]*RevokedToken
	audit   []*AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		roles:   make(map[string]*Role),
		perms:   make(map[string]*Permission),
		grants:  make(map[string]map[string]struct{}),
		revoked: make(map[string]*RevokedToken),
	}
}

func (m *MemoryStore) Users() UserStore             { return (*memUsers)(m) }
func (m *MemoryStore) Roles() RoleStore             { return (*memRoles)(m) }
func (m *MemoryStore) Revocations() RevocationStore { return (*memRevocations)(m) }
func (m *MemoryStore) Audit() AuditStore            { return (*memAudit)(m) }

// PutRole inserts or replaces a role; test fixtures use it directly.
func (m *MemoryStore) PutRole(r *Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.roles[r.ID] = &cp
}

// GrantPermission attaches a named permission to a role, creating the
// catalog row if needed.
func (m *MemoryStore) GrantPermission(roleID, permName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var perm *Permission
	for _, p := range m.perms {
		if p.Name == permName {
			perm = p
			break
		}
	}
	if perm == nil {
		perm = &Permission{ID: "perm-" + permName, Name: permName, CreatedAt: time.Now().UTC()}
		m.perms[perm.ID] = perm
	}
	if m.grants[roleID] == nil {
		m.grants[roleID] = make(map[string]struct{})
	}
	m.grants[roleID][perm.ID] = struct{}{}
}

// RevokeGrant detaches a named permission from a role.
func (m *MemoryStore) RevokeGrant(roleID, permName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.perms {
		if p.Name == permName {
			delete(m.grants[roleID], id)
			return
		}
	}
}

type memUsers MemoryStore

func (m *memUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrConflict
	}
	email := strings.ToLower(u.Email)
	for _, existing := range m.users {
		if !existing.Deleted() && strings.ToLower(existing.Email) == email {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Find(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok || u.Deleted() {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if !u.Deleted() && strings.ToLower(u.Email) == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) List(ctx context.Context, scope ListScope) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*User{}
	if scope.Empty() {
		return out, nil
	}
	for _, u := range m.users {
		if u.Deleted() {
			continue
		}
		if !scope.All && u.CreatedBy != scope.CreatedBy {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memUsers) Update(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok || existing.Deleted() {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) TouchLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Deleted() {
		return ErrNotFound
	}
	t := at.UTC()
	u.LastLoginAt = &t
	return nil
}

type memRoles MemoryStore

func (m *memRoles) Find(ctx context.Context, id string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRoles) PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Permission{}
	for permID := range m.grants[roleID] {
		if p, ok := m.perms[permID]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memRoles) EnsurePermissions(ctx context.Context, perms []Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range perms {
		exists := false
		for _, existing := range m.perms {
			if existing.Name == p.Name {
				exists = true
				break
			}
		}
		if !exists {
			cp := p
			if cp.ID == "" {
				cp.ID = "perm-" + cp.Name
			}
			cp.CreatedAt = time.Now().UTC()
			m.perms[cp.ID] = &cp
		}
	}
	return nil
}

type memRevocations MemoryStore

func (m *memRevocations) Revoke(ctx context.Context, digest string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.revoked[digest]; ok {
		return nil
	}
	m.revoked[digest] = &RevokedToken{
		TokenDigest: digest,
		ExpiresAt:   expiresAt.UTC(),
		RevokedAt:   time.Now().UTC(),
	}
	return nil
}

func (m *memRevocations) IsRevoked(ctx context.Context, digest string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[digest]
	return ok, nil
}

func (m *memRevocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for digest, rt := range m.revoked {
		if rt.ExpiresAt.Before(now) {
			delete(m.revoked, digest)
			n++
		}
	}
	return n, nil
}

type memAudit MemoryStore

func (m *memAudit) Append(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.audit = append(m.audit, &cp)
	return nil
}

// AuditEntries returns a snapshot of the appended log, oldest first.
func (m *MemoryStore) AuditEntries() []*AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*AuditEntry, len(m.audit))
	for i, e := range m.audit {
		cp := *e
		out[i] = &cp
	}
	return out
}
