package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemoryDirectory is a process-local Directory used by tests and the dev server.
type InMemoryDirectory struct {
	mu         sync.RWMutex
	identities map[string]Identity
	tokens     map[string]string
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		identities: make(map[string]Identity),
		tokens:     make(map[string]string),
	}
}

func (d *InMemoryDirectory) CreateIdentity(_ context.Context, in CreateIdentityInput) (Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.identities[in.Username]; ok {
		return Identity{}, fmt.Errorf("%w: %s", ErrIdentityExists, in.Username)
	}

	attrs := copyAttrs(in.Attributes)
	attrs[AttrSub] = uuid.NewString()
	id := Identity{Username: in.Username, Attributes: attrs}
	d.identities[in.Username] = id
	return cloneIdentity(id), nil
}

func (d *InMemoryDirectory) GetIdentity(_ context.Context, username string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.find(username)
	if !ok {
		return Identity{}, fmt.Errorf("%w: %s", ErrIdentityNotFound, username)
	}
	return cloneIdentity(id), nil
}

func (d *InMemoryDirectory) ResolveToken(_ context.Context, accessToken string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	username, ok := d.tokens[accessToken]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	id, ok := d.identities[username]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return cloneIdentity(id), nil
}

func (d *InMemoryDirectory) UpdateAttributes(_ context.Context, username string, attrs map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.find(username)
	if !ok {
		return fmt.Errorf("%w: %s", ErrIdentityNotFound, username)
	}
	for k, v := range attrs {
		if k == AttrSub {
			continue
		}
		id.Attributes[k] = v
	}
	return nil
}

func (d *InMemoryDirectory) DeleteIdentity(_ context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.find(username)
	if !ok {
		return fmt.Errorf("%w: %s", ErrIdentityNotFound, username)
	}
	delete(d.identities, id.Username)
	for token, owner := range d.tokens {
		if owner == id.Username {
			delete(d.tokens, token)
		}
	}
	return nil
}

// Seed stores an identity as is, bypassing creation rules. A sub is generated when missing.
func (d *InMemoryDirectory) Seed(id Identity) Identity {
	d.mu.Lock()
	defer d.mu.Unlock()

	id.Attributes = copyAttrs(id.Attributes)
	if id.Attributes[AttrSub] == "" {
		id.Attributes[AttrSub] = uuid.NewString()
	}
	d.identities[id.Username] = id
	return cloneIdentity(id)
}

// IssueToken returns a new access token for username.
func (d *InMemoryDirectory) IssueToken(username string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.identities[username]; !ok {
		return "", fmt.Errorf("%w: %s", ErrIdentityNotFound, username)
	}
	token := uuid.NewString()
	d.tokens[token] = username
	return token, nil
}

// find looks an identity up by username, then by sub.
func (d *InMemoryDirectory) find(key string) (Identity, bool) {
	if id, ok := d.identities[key]; ok {
		return id, true
	}
	for _, id := range d.identities {
		if id.Attributes[AttrSub] == key {
			return id, true
		}
	}
	return Identity{}, false
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func cloneIdentity(id Identity) Identity {
	return Identity{Username: id.Username, Attributes: copyAttrs(id.Attributes)}
}
