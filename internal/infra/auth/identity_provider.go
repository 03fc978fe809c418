package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dubaivat/config"
	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/repository"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/errors"
	"dubaivat/internal/util"

	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
)

const refreshTimeout = 10 * time.Second

// credentialsInput is validated before any account lookup.
type credentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type subscription struct {
	id      int
	handler service.AuthEventHandler
}

// LocalIdentityProvider is an identity provider backed by the accounts table.
// It holds a single current session, like a client SDK does, and notifies
// subscribers of every change in the order the changes were made.
//
// Handlers are called synchronously and must not call back into the provider.
type LocalIdentityProvider struct {
	txManager     repository.TransactionManager
	tokens        service.TokenService
	hasher        service.PasswordHasher
	validate      *validator.Validate
	refreshMargin time.Duration
	logger        *slog.Logger

	// emitMu serialises a session change together with its notification.
	emitMu sync.Mutex

	mu           sync.Mutex
	session      *entity.Session
	handlers     []subscription
	nextID       int
	refreshTimer *time.Timer
	refreshGen   uint64
	stopped      bool
}

// IdentityProviderParams holds the dependencies of LocalIdentityProvider.
type IdentityProviderParams struct {
	fx.In
	fx.Lifecycle

	Config    *config.Config
	TxManager repository.TransactionManager
	Tokens    service.TokenService
	Hasher    service.PasswordHasher
	Logger    *slog.Logger
}

// NewLocalIdentityProvider builds the provider and stops its refresher with the app.
func NewLocalIdentityProvider(params IdentityProviderParams) *LocalIdentityProvider {
	provider := newLocalIdentityProvider(params.Config, params.TxManager, params.Tokens, params.Hasher, params.Logger)

	params.Append(fx.Hook{
		OnStop: func(context.Context) error {
			provider.Stop()

			return nil
		},
	})

	return provider
}

func newLocalIdentityProvider(
	cfg *config.Config,
	txManager repository.TransactionManager,
	tokens service.TokenService,
	hasher service.PasswordHasher,
	logger *slog.Logger,
) *LocalIdentityProvider {
	authCfg := cfg.Auth
	if authCfg == nil {
		authCfg = &config.AuthConfig{}
	}
	authCfg.ApplyDefaults()

	return &LocalIdentityProvider{
		txManager:     txManager,
		tokens:        tokens,
		hasher:        hasher,
		validate:      util.NewValidator(),
		refreshMargin: authCfg.RefreshMargin,
		logger:        logger,
	}
}

// GetSession returns the current session, or nil when nobody is signed in.
func (p *LocalIdentityProvider) GetSession(_ context.Context) (*entity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil, nil
	}
	session := *p.session

	return &session, nil
}

// OnAuthEvent registers a handler. Handlers run in registration order.
func (p *LocalIdentityProvider) OnAuthEvent(handler service.AuthEventHandler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.handlers = append(p.handlers, subscription{id: id, handler: handler})

	var once sync.Once

	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()

			for i, sub := range p.handlers {
				if sub.id == id {
					p.handlers = append(p.handlers[:i:i], p.handlers[i+1:]...)

					break
				}
			}
		})
	}
}

func (p *LocalIdentityProvider) SignUp(ctx context.Context, email, password string, meta entity.UserMetadata) (*entity.Session, error) {
	input := credentialsInput{Email: strings.TrimSpace(email), Password: password}
	if err := p.validate.Struct(input); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}
	if err := p.validate.Struct(meta); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}
	meta.AccountType = entity.ParseAccountType(string(meta.AccountType))

	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	account := &repository.Account{
		Email:        input.Email,
		PasswordHash: hash,
		Metadata:     meta,
	}
	err = p.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.AccountRepo().Create(ctx, account)
	})
	if errors.Is(err, repository.ErrAccountEmailTaken) {
		return nil, domainerrors.ErrAccountAlreadyExists
	}
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrUnreachable, err.Error())
	}

	p.logger.Info("Account created", slog.Any("account_id", account.ID), slog.String("account_type", string(meta.AccountType)))

	return p.startSession(account, entity.AuthEventSignedIn)
}

func (p *LocalIdentityProvider) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	input := credentialsInput{Email: strings.TrimSpace(email), Password: password}
	if err := p.validate.Struct(input); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}

	var account *repository.Account
	err := p.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.AccountRepo().FindByEmail(ctx, input.Email)
		if err != nil {
			return err
		}
		account = found

		return nil
	})
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrUnreachable, err.Error())
	}

	if !p.hasher.Check(password, account.PasswordHash) {
		p.logger.Debug("Password mismatch", slog.Any("account_id", account.ID))

		return nil, domainerrors.ErrInvalidCredentials
	}

	return p.startSession(account, entity.AuthEventSignedIn)
}

// SignOut clears the current session. SIGNED_OUT is emitted even when there
// was no session.
func (p *LocalIdentityProvider) SignOut(_ context.Context) error {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	p.session = nil
	p.cancelRefreshLocked()
	handlers := p.handlersLocked()
	p.mu.Unlock()

	p.emit(handlers, entity.AuthEvent{Type: entity.AuthEventSignedOut})

	return nil
}

// UpdateUser replaces the metadata of the signed-in account and emits USER_UPDATED.
func (p *LocalIdentityProvider) UpdateUser(ctx context.Context, meta entity.UserMetadata) (*entity.Session, error) {
	current, _ := p.GetSession(ctx)
	if current == nil {
		return nil, domainerrors.ErrNotAuthenticated
	}
	if err := p.validate.Struct(meta); err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}
	if meta.AccountType == "" {
		meta.AccountType = current.Identity.AccountType
	}

	var account *repository.Account
	err := p.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.AccountRepo()
		if err := repo.UpdateMetadata(ctx, current.Identity.ID, meta); err != nil {
			return err
		}
		found, err := repo.FindByID(ctx, current.Identity.ID)
		if err != nil {
			return err
		}
		account = found

		return nil
	})
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, domainerrors.ErrNotAuthenticated
	}
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrUnreachable, err.Error())
	}

	return p.startSession(account, entity.AuthEventUserUpdated)
}

// RefreshSession validates the current refresh token, re-issues the token pair
// and emits TOKEN_REFRESHED.
func (p *LocalIdentityProvider) RefreshSession(ctx context.Context) (*entity.Session, error) {
	current, _ := p.GetSession(ctx)
	if current == nil {
		return nil, domainerrors.ErrNotAuthenticated
	}

	claims, err := p.tokens.ValidateToken(current.RefreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeRefresh || claims.UserID != current.Identity.ID {
		return nil, domainerrors.ErrTokenInvalid
	}

	pair, err := p.tokens.GenerateTokens(current.Identity)
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		Identity:     current.Identity,
	}

	// The session may have ended while the tokens were issued.
	if !p.replaceSession(session, entity.AuthEventTokenRefreshed, &current.Identity) {
		return nil, domainerrors.ErrNotAuthenticated
	}

	return session, nil
}

// Stop cancels the background refresher. The provider keeps answering calls.
func (p *LocalIdentityProvider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	p.cancelRefreshLocked()
}

func (p *LocalIdentityProvider) startSession(account *repository.Account, eventType entity.AuthEventType) (*entity.Session, error) {
	identity := entity.NewIdentity(account.ID, account.Email, account.Metadata)

	pair, err := p.tokens.GenerateTokens(identity)
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		Identity:     identity,
	}
	p.replaceSession(session, eventType, nil)

	return session, nil
}

// replaceSession installs session and emits eventType. When expect is set the
// swap only happens if the current session still belongs to that identity.
func (p *LocalIdentityProvider) replaceSession(session *entity.Session, eventType entity.AuthEventType, expect *entity.Identity) bool {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if expect != nil && (p.session == nil || p.session.Identity.ID != expect.ID) {
		p.mu.Unlock()

		return false
	}
	p.session = session
	p.scheduleRefreshLocked(session.ExpiresAt)
	handlers := p.handlersLocked()
	p.mu.Unlock()

	copied := *session
	p.emit(handlers, entity.AuthEvent{Type: eventType, Session: &copied})

	return true
}

func (p *LocalIdentityProvider) emit(handlers []service.AuthEventHandler, event entity.AuthEvent) {
	p.logger.Debug("Emitting auth event", slog.String("type", string(event.Type)), slog.Int("subscribers", len(handlers)))

	for _, handler := range handlers {
		handler(event)
	}
}

func (p *LocalIdentityProvider) handlersLocked() []service.AuthEventHandler {
	handlers := make([]service.AuthEventHandler, len(p.handlers))
	for i, sub := range p.handlers {
		handlers[i] = sub.handler
	}

	return handlers
}

func (p *LocalIdentityProvider) scheduleRefreshLocked(expiresAt time.Time) {
	p.cancelRefreshLocked()
	if p.stopped {
		return
	}

	p.refreshGen++
	gen := p.refreshGen
	delay := max(time.Until(expiresAt)-p.refreshMargin, 0)

	p.refreshTimer = time.AfterFunc(delay, func() {
		p.mu.Lock()
		current := gen == p.refreshGen && !p.stopped
		p.mu.Unlock()
		if !current {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		_, err := p.RefreshSession(ctx)
		if err == nil {
			return
		}
		p.logger.Warn("Automatic token refresh failed", slog.Any("error", err))

		// A refresh token that no longer validates ends the session.
		if errors.Is(err, domainerrors.ErrTokenInvalid) {
			_ = p.SignOut(ctx)
		}
	})
}

func (p *LocalIdentityProvider) cancelRefreshLocked() {
	p.refreshGen++
	if p.refreshTimer != nil {
		p.refreshTimer.Stop()
		p.refreshTimer = nil
	}
}
