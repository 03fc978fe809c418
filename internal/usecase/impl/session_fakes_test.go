package impl

import (
	"context"
	"sync"
	"time"

	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/usecase"

	"github.com/google/uuid"
)

// fakeIdentityProvider is an in-process identity provider whose events are
// emitted synchronously by the test.
type fakeIdentityProvider struct {
	mu         sync.Mutex
	session    *entity.Session
	sessionErr error
	signInErr  error
	signOutErr error
	accounts   map[string]entity.Identity
	handlers   map[int]service.AuthEventHandler
	nextID     int
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{
		accounts: map[string]entity.Identity{},
		handlers: map[int]service.AuthEventHandler{},
	}
}

func (p *fakeIdentityProvider) GetSession(context.Context) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session, p.sessionErr
}

func (p *fakeIdentityProvider) OnAuthEvent(handler service.AuthEventHandler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.handlers[id] = handler

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *fakeIdentityProvider) subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.handlers)
}

func (p *fakeIdentityProvider) emit(eventType entity.AuthEventType, identity *entity.Identity) {
	event := entity.AuthEvent{Type: eventType}
	if identity != nil {
		event.Session = &entity.Session{
			AccessToken: "token-" + identity.ID.String(),
			ExpiresAt:   time.Now().Add(time.Hour),
			Identity:    *identity,
		}
	}

	p.mu.Lock()
	handlers := make([]service.AuthEventHandler, 0, len(p.handlers))
	for _, handler := range p.handlers {
		handlers = append(handlers, handler)
	}
	p.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (p *fakeIdentityProvider) SignIn(_ context.Context, email, _ string) (*entity.Session, error) {
	p.mu.Lock()
	identity, ok := p.accounts[email]
	err := p.signInErr
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainerrors.ErrInvalidCredentials
	}

	return p.startSession(entity.AuthEventSignedIn, identity), nil
}

func (p *fakeIdentityProvider) SignUp(_ context.Context, email, _ string, meta entity.UserMetadata) (*entity.Session, error) {
	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()

		return nil, domainerrors.ErrAccountAlreadyExists
	}
	identity := entity.NewIdentity(uuid.New(), email, meta)
	p.accounts[email] = identity
	p.mu.Unlock()

	return p.startSession(entity.AuthEventSignedIn, identity), nil
}

func (p *fakeIdentityProvider) UpdateUser(_ context.Context, meta entity.UserMetadata) (*entity.Session, error) {
	p.mu.Lock()
	current := p.session
	p.mu.Unlock()

	if current == nil {
		return nil, domainerrors.ErrNotAuthenticated
	}

	identity := entity.NewIdentity(current.Identity.ID, current.Identity.Email, meta)
	if meta.AccountType == "" {
		identity.AccountType = current.Identity.AccountType
	}

	return p.startSession(entity.AuthEventUserUpdated, identity), nil
}

func (p *fakeIdentityProvider) startSession(eventType entity.AuthEventType, identity entity.Identity) *entity.Session {
	session := &entity.Session{Identity: identity}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	p.emit(eventType, &identity)

	return session
}

func (p *fakeIdentityProvider) SignOut(context.Context) error {
	p.mu.Lock()
	err := p.signOutErr
	p.mu.Unlock()

	if err != nil {
		return err
	}

	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()

	p.emit(entity.AuthEventSignedOut, nil)

	return nil
}

// memoryProfileGateway is an in-memory ProfileGateway that enforces one
// profile per owner.
type memoryProfileGateway struct {
	mu         sync.Mutex
	business   map[uuid.UUID]*entity.BusinessProfile
	individual map[uuid.UUID]*entity.IndividualProfile
	creates    int
}

func newMemoryProfileGateway() *memoryProfileGateway {
	return &memoryProfileGateway{
		business:   map[uuid.UUID]*entity.BusinessProfile{},
		individual: map[uuid.UUID]*entity.IndividualProfile{},
	}
}

func (g *memoryProfileGateway) GetProfile(_ context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.business[ownerID]; ok {
		cp := *p

		return &cp, nil
	}

	return nil, nil
}

func (g *memoryProfileGateway) CreateProfile(_ context.Context, ownerID uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.creates++
	if _, ok := g.business[ownerID]; ok {
		return nil, domainerrors.ErrConflict
	}

	p := &entity.BusinessProfile{ID: uuid.New(), OwnerID: ownerID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	p.Apply(data)
	g.business[ownerID] = p
	cp := *p

	return &cp, nil
}

func (g *memoryProfileGateway) UpdateProfile(_ context.Context, id uuid.UUID, data entity.BusinessProfileData) (*entity.BusinessProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.business {
		if p.ID == id {
			p.Apply(data)
			p.UpdatedAt = time.Now()
			cp := *p

			return &cp, nil
		}
	}

	return nil, domainerrors.ErrNotFound
}

func (g *memoryProfileGateway) GetIndividualProfile(_ context.Context, ownerID uuid.UUID) (*entity.IndividualProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.individual[ownerID]; ok {
		cp := *p

		return &cp, nil
	}

	return nil, nil
}

func (g *memoryProfileGateway) CreateIndividualProfile(_ context.Context, ownerID uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.creates++
	if _, ok := g.individual[ownerID]; ok {
		return nil, domainerrors.ErrConflict
	}

	p := &entity.IndividualProfile{ID: uuid.New(), OwnerID: ownerID}
	p.Apply(data)
	g.individual[ownerID] = p
	cp := *p

	return &cp, nil
}

func (g *memoryProfileGateway) UpdateIndividualProfile(_ context.Context, id uuid.UUID, data entity.IndividualProfileData) (*entity.IndividualProfile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.individual {
		if p.ID == id {
			p.Apply(data)
			cp := *p

			return &cp, nil
		}
	}

	return nil, domainerrors.ErrNotFound
}

func (g *memoryProfileGateway) businessCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.business)
}

// scriptedProfileSync blocks every resolution until the test releases it, and
// records how many ran concurrently. Save operations are not scripted.
type scriptedProfileSync struct {
	usecase.ProfileSyncUsecase

	mu        sync.Mutex
	calls     int
	active    int
	maxActive int
	fail      bool
	profiles  map[uuid.UUID]*entity.BusinessProfile
	release   chan struct{}
}

func newScriptedProfileSync() *scriptedProfileSync {
	return &scriptedProfileSync{
		profiles: map[uuid.UUID]*entity.BusinessProfile{},
		release:  make(chan struct{}),
	}
}

func (s *scriptedProfileSync) ResolveProfile(ctx context.Context, ownerID uuid.UUID) (*entity.BusinessProfile, bool) {
	s.mu.Lock()
	s.calls++
	s.active++
	s.maxActive = max(s.maxActive, s.active)
	s.mu.Unlock()

	select {
	case <-s.release:
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--

	if s.fail {
		return nil, false
	}

	return s.profiles[ownerID], true
}

func (s *scriptedProfileSync) setProfile(ownerID uuid.UUID, profile *entity.BusinessProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[ownerID] = profile
}

func (s *scriptedProfileSync) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *scriptedProfileSync) stats() (calls, maxActive int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls, s.maxActive
}
