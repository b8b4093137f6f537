package core

import (
	"context"
	"sync"
)

// In-memory repo fakes. The claim fake mirrors the store contract: the
// mutating calls are conditional writes that fail with ErrStaleClaim when
// the claim moved underneath the caller.

type fakeCatalog struct {
	mu       sync.Mutex
	policies map[string]Policy
	listErr  error
	getErr   error
}

func newFakeCatalog(policies ...Policy) *fakeCatalog {
	m := make(map[string]Policy, len(policies))
	for _, p := range policies {
		m[p.ID] = p
	}
	return &fakeCatalog{policies: m}
}

func (f *fakeCatalog) List(ctx context.Context) ([]Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]Policy, 0, len(f.policies))
	for _, p := range f.policies {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return Policy{}, f.getErr
	}
	p, ok := f.policies[id]
	if !ok {
		return Policy{}, ErrPolicyNotFound
	}
	return p, nil
}

func (f *fakeCatalog) UpsertByID(ctx context.Context, p Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[p.ID] = p
	return nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]UserProfile
	getErr   error
}

func newFakeProfiles(profiles ...UserProfile) *fakeProfiles {
	m := make(map[string]UserProfile, len(profiles))
	for _, p := range profiles {
		m[p.ID] = p
	}
	return &fakeProfiles{profiles: m}
}

func (f *fakeProfiles) Get(ctx context.Context, id string) (UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return UserProfile{}, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return UserProfile{}, ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Upsert(ctx context.Context, p UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
	return nil
}

type fakeClaims struct {
	mu     sync.Mutex
	claims map[string]Claim
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{claims: make(map[string]Claim)}
}

func (f *fakeClaims) Create(ctx context.Context, c Claim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.claims[c.ID]; ok {
		return ErrConflict
	}
	f.claims[c.ID] = c
	return nil
}

func (f *fakeClaims) Get(ctx context.Context, id string) (Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return Claim{}, ErrClaimNotFound
	}
	return c, nil
}

func (f *fakeClaims) ListByUser(ctx context.Context, userID string, limit int) ([]Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Claim
	for _, c := range f.claims {
		if c.UserID == userID {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeClaims) FindByStatus(ctx context.Context, status ClaimStatus, limit int) ([]Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Claim
	for _, c := range f.claims {
		if c.Status == status {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeClaims) AppendTransition(ctx context.Context, id string, from, to ClaimStatus, approvedAmount *float64, entry AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return ErrClaimNotFound
	}
	if c.Status != from {
		return ErrStaleClaim
	}
	c.Status = to
	if approvedAmount != nil {
		c.ApprovedAmount = approvedAmount
	}
	c.UpdatedAt = entry.At
	c.Audit = append(c.Audit, entry)
	f.claims[id] = c
	return nil
}

func (f *fakeClaims) ResolveFlag(ctx context.Context, id string, flagIndex int, resolvedBy string, entry AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[id]
	if !ok {
		return ErrClaimNotFound
	}
	if flagIndex < 0 || flagIndex >= len(c.Flags) || c.Flags[flagIndex].Resolved {
		return ErrStaleClaim
	}
	flags := make([]FraudFlag, len(c.Flags))
	copy(flags, c.Flags)
	flags[flagIndex].Resolved = true
	flags[flagIndex].ResolvedBy = resolvedBy
	c.Flags = flags
	c.UpdatedAt = entry.At
	c.Audit = append(c.Audit, entry)
	f.claims[id] = c
	return nil
}
