package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
	"github.com/vkorchagin/accountd/internal/notify"
	"github.com/vkorchagin/accountd/internal/repository"
	"github.com/vkorchagin/accountd/internal/token"
)

type fakeIdents struct {
	items    map[uuid.UUID]*model.Identity
	maxFails int
	lockFor  time.Duration

	createErr error
	deleteErr error
}

var _ repository.IdentityRepository = (*fakeIdents)(nil)

func newFakeIdents() *fakeIdents {
	return &fakeIdents{
		items:    map[uuid.UUID]*model.Identity{},
		maxFails: 3,
		lockFor:  15 * time.Minute,
	}
}

func (f *fakeIdents) Create(_ context.Context, ident *model.Identity) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.items {
		if u.Email == ident.Email || u.Username == ident.Username {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *ident
	cpy.CreatedAt = time.Now()
	f.items[ident.ID] = &cpy
	return nil
}

func (f *fakeIdents) find(match func(*model.Identity) bool) (*model.Identity, error) {
	for _, u := range f.items {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeIdents) GetByID(_ context.Context, id uuid.UUID) (*model.Identity, error) {
	return f.find(func(u *model.Identity) bool { return u.ID == id })
}

func (f *fakeIdents) GetByEmail(_ context.Context, email string) (*model.Identity, error) {
	return f.find(func(u *model.Identity) bool { return u.Email == email })
}

func (f *fakeIdents) GetByUsername(_ context.Context, username string) (*model.Identity, error) {
	return f.find(func(u *model.Identity) bool { return u.Username == username })
}

func (f *fakeIdents) GetByRefreshToken(_ context.Context, tok string) (*model.Identity, error) {
	if tok == "" {
		return nil, errs.ErrNotFound
	}
	return f.find(func(u *model.Identity) bool { return u.RefreshToken == tok })
}

func (f *fakeIdents) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := f.find(func(u *model.Identity) bool { return u.Email == email })
	return err == nil, nil
}

func (f *fakeIdents) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := f.find(func(u *model.Identity) bool { return u.Username == username })
	return err == nil, nil
}

func (f *fakeIdents) Delete(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeIdents) RecordLoginFailure(_ context.Context, id uuid.UUID) (bool, error) {
	u, ok := f.items[id]
	if !ok {
		return false, errs.ErrNotFound
	}
	now := time.Now()
	if !u.LockedUntil.IsZero() && !u.LockedUntil.After(now) {
		// expired lock: this failure starts a fresh count
		u.FailedLogins = 1
		u.LockedUntil = time.Time{}
	} else {
		u.FailedLogins++
	}
	if u.FailedLogins >= f.maxFails {
		u.LockedUntil = now.Add(f.lockFor)
		return true, nil
	}
	return false, nil
}

func (f *fakeIdents) ResetLoginFailures(_ context.Context, id uuid.UUID) error {
	u, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.FailedLogins = 0
	u.LockedUntil = time.Time{}
	return nil
}

func (f *fakeIdents) SetPassword(_ context.Context, id uuid.UUID, hash, salt []byte) error {
	u, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PwdHash = append([]byte(nil), hash...)
	u.SaltAuth = append([]byte(nil), salt...)
	return nil
}

func (f *fakeIdents) SetEmailUsername(_ context.Context, id uuid.UUID, email, username string) error {
	for _, u := range f.items {
		if u.ID != id && (u.Email == email || u.Username == username) {
			return errs.ErrAlreadyExists
		}
	}
	u, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Email = email
	u.Username = username
	return nil
}

func (f *fakeIdents) SetEmailConfirmed(_ context.Context, id uuid.UUID, confirmed bool) error {
	u, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.EmailConfirmed = confirmed
	return nil
}

func (f *fakeIdents) SetRefreshToken(_ context.Context, id uuid.UUID, tok string, expiresAt time.Time) error {
	u, ok := f.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.RefreshToken = tok
	u.RefreshExpiresAt = expiresAt
	return nil
}

type fakeProfiles struct {
	items map[uuid.UUID]*model.Profile

	addErr    error
	updateErr error
}

var _ repository.ProfileRepository = (*fakeProfiles)(nil)

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{items: map[uuid.UUID]*model.Profile{}}
}

func (f *fakeProfiles) GetByIdentityID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProfiles) Add(_ context.Context, p *model.Profile) error {
	if f.addErr != nil {
		return f.addErr
	}
	if _, ok := f.items[p.IdentityID]; ok {
		return errs.ErrAlreadyExists
	}
	c := *p
	f.items[p.IdentityID] = &c
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, p *model.Profile) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.items[p.IdentityID]; !ok {
		return errs.ErrNotFound
	}
	c := *p
	f.items[p.IdentityID] = &c
	return nil
}

func (f *fakeProfiles) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeRoles struct {
	defined  map[string]bool
	claims   map[string][]string
	assigned map[uuid.UUID][]string

	addErr error
}

var _ repository.RoleRepository = (*fakeRoles)(nil)

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		defined:  map[string]bool{DefaultRole: true},
		claims:   map[string][]string{DefaultRole: {"account.read", "profile.write"}},
		assigned: map[uuid.UUID][]string{},
	}
}

func (f *fakeRoles) Exists(_ context.Context, name string) (bool, error) {
	return f.defined[name], nil
}

func (f *fakeRoles) AddToRole(_ context.Context, id uuid.UUID, role string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.assigned[id] = append(f.assigned[id], role)
	return nil
}

func (f *fakeRoles) RolesOf(_ context.Context, id uuid.UUID) ([]string, error) {
	return append([]string(nil), f.assigned[id]...), nil
}

func (f *fakeRoles) PermissionsOf(_ context.Context, roles []string) ([]string, error) {
	var perms []string
	for _, r := range roles {
		perms = append(perms, f.claims[r]...)
	}
	return perms, nil
}

func (f *fakeRoles) RemoveFromRoles(_ context.Context, id uuid.UUID) error {
	delete(f.assigned, id)
	return nil
}

type sentNotification struct {
	useCase    notify.UseCase
	recipients []string
	params     map[string]string
}

type fakeGateway struct {
	sent    []sentNotification
	sendErr error
}

var _ notify.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) Send(_ context.Context, useCase notify.UseCase, recipients []string, params map[string]string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentNotification{useCase: useCase, recipients: recipients, params: params})
	return nil
}

type fakeSocial struct {
	payload *model.SocialPayload
	err     error
}

var _ SocialVerifier = (*fakeSocial)(nil)

func (f *fakeSocial) Verify(context.Context, string, string) (*model.SocialPayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type testEnv struct {
	idents   *fakeIdents
	profiles *fakeProfiles
	roles    *fakeRoles
	gateway  *fakeGateway
	social   *fakeSocial
	issuer   *token.Issuer
	svc      *AccountServiceImpl
}

func newTestEnv() *testEnv {
	env := &testEnv{
		idents:   newFakeIdents(),
		profiles: newFakeProfiles(),
		roles:    newFakeRoles(),
		gateway:  &fakeGateway{},
		social:   &fakeSocial{},
		issuer:   token.NewIssuer([]byte("test-key"), time.Minute, time.Hour, time.Hour),
	}
	env.svc = NewAccountService(
		env.idents, env.profiles, env.roles,
		env.issuer, env.gateway, env.social,
		"https://shop.example", zap.NewNop(),
	)
	return env
}
