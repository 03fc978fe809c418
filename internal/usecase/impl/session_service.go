package impl

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dubaivat/config"
	deliverycontext "dubaivat/internal/delivery/context"
	"dubaivat/internal/domain/entity"
	domainerrors "dubaivat/internal/domain/errors"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/errors"
	"dubaivat/internal/usecase"
	"dubaivat/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrSessionStopped is returned by commands issued after the machine loop exited.
var ErrSessionStopped = errors.New("session machine is not running")

type armedTimer struct {
	timer *time.Timer
	gen   uint64
}

// sessionService implements the SessionUsecase interface as a single-writer
// state machine. Every mutation of the session record happens on the Run
// goroutine; readers take a snapshot under mu.
type sessionService struct {
	provider service.IdentityProvider
	profiles usecase.ProfileSyncUsecase
	metrics  service.SyncMetrics
	validate *validator.Validate
	cfg      config.SessionConfig
	logger   *slog.Logger

	queue   *sessionEventQueue
	running atomic.Bool
	stopped chan struct{}
	runCtx  context.Context

	mu                 sync.RWMutex
	state              usecase.State
	user               *entity.SessionUser
	loading            bool
	onboardingResolved bool
	navigation         usecase.NavigationHint
	// profileVersion increments whenever a command publishes a profile.
	// Resolutions that started under an older version keep the newer profile.
	profileVersion uint64

	// Loop-only fields.
	inFlight    bool
	epoch       uint64
	sessionSeen bool
	timerGen    uint64
	timers      map[timerKind]*armedTimer

	listenersMu    sync.Mutex
	listeners      map[uint64]func(usecase.Snapshot)
	nextListenerID uint64
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(
	cfg *config.Config,
	provider service.IdentityProvider,
	profiles usecase.ProfileSyncUsecase,
	metrics service.SyncMetrics,
	logger *slog.Logger,
) usecase.SessionUsecase {
	sessionCfg := config.DefaultSessionConfig()
	if cfg.Session != nil {
		sessionCfg = cfg.Session
	}

	return &sessionService{
		provider:  provider,
		profiles:  profiles,
		metrics:   metrics,
		validate:  util.NewValidator(),
		cfg:       *sessionCfg,
		logger:    logger.With(slog.String("component", "session")),
		queue:     newSessionEventQueue(),
		stopped:   make(chan struct{}),
		state:     usecase.StateInitializing,
		loading:   true,
		timers:    make(map[timerKind]*armedTimer, 2),
		listeners: make(map[uint64]func(usecase.Snapshot)),
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Run subscribes to the provider, reads the initial session and then processes
// events until ctx is cancelled.
func (srv *sessionService) Run(ctx context.Context) error {
	if !srv.running.CompareAndSwap(false, true) {
		return errors.New("session machine is already running")
	}
	defer close(srv.stopped)

	srv.runCtx = ctx
	srv.logger.Info("Session machine starting")

	unsubscribe := srv.provider.OnAuthEvent(srv.enqueueAuthEvent)
	defer unsubscribe()

	srv.mu.Lock()
	srv.enterLoading(usecase.StateInitializing)
	srv.mu.Unlock()
	srv.notify()

	go srv.bootstrap(ctx)

	for {
		if event, ok := srv.queue.TryDequeue(); ok {
			srv.process(event)

			continue
		}

		select {
		case <-ctx.Done():
			srv.shutdown()
			srv.logger.Info("Session machine stopped")

			return ctx.Err()
		case <-srv.queue.Wait():
		}
	}
}

func (srv *sessionService) shutdown() {
	for _, pending := range srv.queue.Close() {
		if pending.command != nil {
			pending.command.reply <- ErrSessionStopped
		}
	}

	srv.mu.Lock()
	srv.disarmAll()
	srv.mu.Unlock()
}

func (srv *sessionService) enqueueAuthEvent(event entity.AuthEvent) {
	if !srv.queue.Enqueue(sessionEvent{kind: eventAuth, auth: event}) {
		srv.logger.Debug("Auth event after shutdown ignored", "event", event.Type)
	}
}

// bootstrap reads the persisted session once at startup.
func (srv *sessionService) bootstrap(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, srv.cfg.InitialLoadTimeout)
	defer cancel()

	session, err := srv.provider.GetSession(ctx)
	srv.queue.Enqueue(sessionEvent{
		kind:      eventBootstrap,
		bootstrap: bootstrapResult{session: session, err: err},
	})
}

// process is the only place the session record changes.
func (srv *sessionService) process(event sessionEvent) {
	srv.mu.Lock()
	switch event.kind {
	case eventAuth:
		srv.handleAuthEvent(event.auth)
	case eventBootstrap:
		srv.handleBootstrap(event.bootstrap)
	case eventResolved:
		srv.handleResolution(event.resolution)
	case eventTimer:
		srv.handleTimer(event.timer)
	case eventCommand:
		event.command.reply <- event.command.apply()
	default:
		srv.logger.Error("Unknown session event", "kind", event.kind)
	}
	srv.mu.Unlock()

	srv.notify()
}

func (srv *sessionService) handleAuthEvent(event entity.AuthEvent) {
	srv.sessionSeen = true
	srv.logger.Debug("Auth event", "event", event.Type, "state", srv.state)

	switch event.Type {
	case entity.AuthEventSignedOut:
		srv.signOut()
	case entity.AuthEventSignedIn:
		srv.beginSession(event.Session, event.Type, true)
	case entity.AuthEventInitialSession:
		srv.beginSession(event.Session, event.Type, false)
	case entity.AuthEventTokenRefreshed, entity.AuthEventUserUpdated:
		srv.refreshSession(event.Session, event.Type)
	default:
		srv.logger.Warn("Ignoring unknown auth event", "event", event.Type)
	}
}

func (srv *sessionService) handleBootstrap(result bootstrapResult) {
	if srv.sessionSeen {
		srv.logger.Debug("Initial session already delivered by the provider")

		return
	}

	switch {
	case result.err != nil:
		srv.logger.Warn("Failed to read the initial session, continuing signed out", "error", result.err)
		srv.setUnauthenticated()
	case result.session == nil:
		srv.setUnauthenticated()
	default:
		srv.beginSession(result.session, entity.AuthEventInitialSession, false)
	}
}

// beginSession handles events that establish a session. A different identity
// starts from a clean guard state.
func (srv *sessionService) beginSession(session *entity.Session, trigger entity.AuthEventType, navigate bool) {
	if session == nil {
		if trigger == entity.AuthEventSignedIn {
			srv.logger.Warn("Sign-in event without a session")
		}
		if srv.user == nil {
			srv.setUnauthenticated()
		}

		return
	}

	identity := session.Identity
	newIdentity := srv.user == nil || srv.user.Identity.ID != identity.ID
	if newIdentity {
		if srv.user != nil {
			srv.logger.Info("Identity changed without sign-out", "from", srv.user.Identity.ID, "to", identity.ID)
		}
		srv.resetGuard()
		srv.user = &entity.SessionUser{Identity: identity}
	} else {
		srv.user.Identity = identity
	}

	if navigate {
		srv.navigate(srv.cfg.DefaultLandingRoute)
	}
	if newIdentity || navigate || srv.state != usecase.StateReady {
		srv.enterLoading(usecase.StateResolvingProfile)
	}

	srv.startResolution(trigger)
}

// refreshSession replaces the identity in place and re-resolves the profile
// without navigation or a loading screen.
func (srv *sessionService) refreshSession(session *entity.Session, trigger entity.AuthEventType) {
	if session == nil {
		srv.logger.Warn("Refresh event without a session", "event", trigger)

		return
	}
	if srv.user == nil || srv.user.Identity.ID != session.Identity.ID {
		srv.beginSession(session, trigger, false)

		return
	}

	typeChanged := srv.user.Identity.AccountType != session.Identity.AccountType
	srv.user.Identity = session.Identity
	if typeChanged {
		srv.logger.Info("Account type changed, resolving the matching profile",
			"userID", session.Identity.ID,
			"accountType", session.Identity.AccountType,
		)
		srv.enterLoading(usecase.StateResolvingProfile)
	}

	srv.startResolution(trigger)
}

func (srv *sessionService) signOut() {
	srv.resetGuard()
	srv.user = nil
	srv.state = usecase.StateSignedOut
	srv.loading = false
	srv.disarmAll()
	srv.navigate(srv.cfg.PublicLandingRoute)
}

// resetGuard invalidates any in-flight resolution and clears session flags.
func (srv *sessionService) resetGuard() {
	srv.epoch++
	srv.inFlight = false
	srv.onboardingResolved = false
}

func (srv *sessionService) setUnauthenticated() {
	srv.state = usecase.StateUnauthenticated
	srv.loading = false
	srv.disarmAll()
}

func (srv *sessionService) markReady() {
	srv.state = usecase.StateReady
	srv.loading = false
	srv.disarmAll()
}

func (srv *sessionService) enterLoading(state usecase.State) {
	srv.state = state
	srv.loading = true
	srv.arm(timerInitialLoad, srv.cfg.InitialLoadTimeout)
	srv.arm(timerLoadingFloor, srv.cfg.LoadingFloor)
}

func (srv *sessionService) navigate(route string) {
	srv.navigation = usecase.NavigationHint{Route: route, Seq: srv.navigation.Seq + 1}
}

// startResolution launches a background profile read unless one is already
// in flight, in which case the triggering event is dropped.
func (srv *sessionService) startResolution(trigger entity.AuthEventType) {
	if srv.inFlight {
		srv.logger.Debug("Profile resolution in flight, dropping event",
			"event", trigger,
			"userID", srv.user.Identity.ID,
		)
		srv.metrics.RecordDroppedEvent(string(trigger))

		return
	}
	srv.inFlight = true

	res := &resolution{
		epoch:          srv.epoch,
		profileVersion: srv.profileVersion,
		ownerID:        srv.user.Identity.ID,
		trigger:        trigger,
	}
	individual := srv.user.IsIndividual()
	ctx := srv.runCtx

	go func() {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				srv.logger.Error("Profile resolution panicked", "panic", r, "userID", res.ownerID)
				res.business, res.individual, res.ok = nil, nil, false
			}
			res.latency = time.Since(start)
			srv.queue.Enqueue(sessionEvent{kind: eventResolved, resolution: res})
		}()

		if individual {
			res.individualFetch = true
			res.individual, res.ok = srv.profiles.ResolveIndividualProfile(ctx, res.ownerID)
		} else {
			res.business, res.ok = srv.profiles.ResolveProfile(ctx, res.ownerID)
		}
	}()
}

func (srv *sessionService) handleResolution(res *resolution) {
	if res.epoch != srv.epoch || srv.user == nil || srv.user.Identity.ID != res.ownerID {
		srv.logger.Debug("Discarding stale profile resolution", "userID", res.ownerID, "event", res.trigger)
		srv.metrics.RecordResolution(service.ResolutionStale, res.latency)

		return
	}
	srv.inFlight = false

	if res.individualFetch != srv.user.IsIndividual() {
		srv.logger.Debug("Account type changed during resolution, resolving again", "userID", res.ownerID)
		srv.metrics.RecordResolution(service.ResolutionStale, res.latency)
		srv.startResolution(res.trigger)

		return
	}

	switch {
	case res.profileVersion != srv.profileVersion:
		srv.logger.Debug("Profile changed during resolution, keeping the newer profile",
			"userID", res.ownerID,
			"event", res.trigger,
		)
		srv.metrics.RecordResolution(service.ResolutionStale, res.latency)
	case !res.ok:
		srv.logger.Warn("Profile resolution failed, continuing with the known profile",
			"userID", res.ownerID,
			"event", res.trigger,
		)
		srv.metrics.RecordResolution(service.ResolutionFailed, res.latency)
	case res.individualFetch:
		srv.user.IndividualProfile = res.individual
		srv.metrics.RecordResolution(resolutionOutcome(res.individual != nil), res.latency)
	default:
		srv.user.BusinessProfile = res.business
		if res.business != nil {
			srv.onboardingResolved = true
		}
		srv.metrics.RecordResolution(resolutionOutcome(res.business != nil), res.latency)
	}

	srv.markReady()
}

func resolutionOutcome(found bool) string {
	if found {
		return service.ResolutionFound
	}

	return service.ResolutionAbsent
}

// arm starts a safety timer unless it is already running. The generation
// number lets a fire that raced with disarm be recognised and ignored.
func (srv *sessionService) arm(kind timerKind, after time.Duration) {
	if _, ok := srv.timers[kind]; ok {
		return
	}

	srv.timerGen++
	fire := timerFire{kind: kind, gen: srv.timerGen}
	srv.timers[kind] = &armedTimer{
		gen: fire.gen,
		timer: time.AfterFunc(after, func() {
			srv.queue.Enqueue(sessionEvent{kind: eventTimer, timer: fire})
		}),
	}
}

func (srv *sessionService) disarm(kind timerKind) {
	if armed, ok := srv.timers[kind]; ok {
		armed.timer.Stop()
		delete(srv.timers, kind)
	}
}

func (srv *sessionService) disarmAll() {
	srv.disarm(timerInitialLoad)
	srv.disarm(timerLoadingFloor)
}

// handleTimer forces the UI out of loading. Forcing is a floor: a resolution
// that completes later still applies.
func (srv *sessionService) handleTimer(fire timerFire) {
	armed, ok := srv.timers[fire.kind]
	if !ok || armed.gen != fire.gen {
		return
	}
	delete(srv.timers, fire.kind)

	switch fire.kind {
	case timerInitialLoad:
		if srv.state != usecase.StateInitializing && srv.state != usecase.StateResolvingProfile {
			return
		}
		srv.logger.Warn("Initial load timed out, forcing ready",
			"after", util.FormatDuration(srv.cfg.InitialLoadTimeout),
			"state", srv.state,
		)
		srv.metrics.RecordSafetyTimer(string(fire.kind))
		if srv.user == nil {
			srv.setUnauthenticated()
		} else {
			srv.markReady()
		}
	case timerLoadingFloor:
		if !srv.loading {
			return
		}
		srv.logger.Warn("Loading floor reached, hiding loading screen",
			"after", util.FormatDuration(srv.cfg.LoadingFloor),
			"state", srv.state,
		)
		srv.metrics.RecordSafetyTimer(string(fire.kind))
		srv.loading = false
	}
}

// Snapshot returns a copy of the current read model.
func (srv *sessionService) Snapshot() usecase.Snapshot {
	srv.mu.RLock()
	defer srv.mu.RUnlock()

	return usecase.Snapshot{
		State:                          srv.state,
		User:                           srv.user.Clone(),
		IsLoading:                      srv.loading,
		ShouldShowOnboarding:           !srv.loading && service.ShouldShowOnboarding(srv.user, srv.onboardingResolved),
		ShouldShowIndividualOnboarding: service.ShouldShowIndividualOnboarding(srv.user, srv.loading),
		OnboardingResolved:             srv.onboardingResolved,
		Navigation:                     srv.navigation,
	}
}

func (srv *sessionService) Subscribe(listener func(usecase.Snapshot)) func() {
	srv.listenersMu.Lock()
	id := srv.nextListenerID
	srv.nextListenerID++
	srv.listeners[id] = listener
	srv.listenersMu.Unlock()

	return sync.OnceFunc(func() {
		srv.listenersMu.Lock()
		delete(srv.listeners, id)
		srv.listenersMu.Unlock()
	})
}

func (srv *sessionService) notify() {
	srv.listenersMu.Lock()
	if len(srv.listeners) == 0 {
		srv.listenersMu.Unlock()

		return
	}
	listeners := make([]func(usecase.Snapshot), 0, len(srv.listeners))
	for _, listener := range srv.listeners {
		listeners = append(listeners, listener)
	}
	srv.listenersMu.Unlock()

	snapshot := srv.Snapshot()
	for _, listener := range listeners {
		listener(snapshot)
	}
}

// do runs apply on the machine goroutine and waits for its result.
func (srv *sessionService) do(ctx context.Context, apply func() error) error {
	cmd := &command{apply: apply, reply: make(chan error, 1)}
	if !srv.queue.Enqueue(sessionEvent{kind: eventCommand, command: cmd}) {
		return ErrSessionStopped
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for session machine")
	case <-srv.stopped:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrSessionStopped
		}
	}
}

func (srv *sessionService) currentUser() *entity.SessionUser {
	srv.mu.RLock()
	defer srv.mu.RUnlock()

	return srv.user.Clone()
}

// SignIn authenticates with the provider. The resulting SIGNED_IN event drives
// the session; this call only reports credential errors.
func (srv *sessionService) SignIn(ctx context.Context, input *usecase.SignInInput) error {
	if err := srv.validate.Struct(input); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}

	srv.log(ctx).Info("Signing in", slog.String("email", input.Email))
	if _, err := srv.provider.SignIn(ctx, input.Email, input.Password); err != nil {
		return errors.Wrap(err, "failed to sign in")
	}

	return nil
}

func (srv *sessionService) SignUp(ctx context.Context, input *usecase.SignUpInput) error {
	if err := srv.validate.Struct(input); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}

	accountType := input.AccountType
	if accountType == "" {
		accountType = entity.AccountTypeBusiness
	}

	srv.log(ctx).Info("Signing up", slog.String("email", input.Email), slog.String("account_type", string(accountType)))
	meta := entity.UserMetadata{DisplayName: input.DisplayName, AccountType: accountType}
	if _, err := srv.provider.SignUp(ctx, input.Email, input.Password, meta); err != nil {
		return errors.Wrap(err, "failed to sign up")
	}

	return nil
}

// SignOut always clears the local session, even when the provider cannot be
// reached.
func (srv *sessionService) SignOut(ctx context.Context) error {
	if err := srv.provider.SignOut(ctx); err != nil {
		srv.log(ctx).Warn("Provider sign-out failed, signing out locally", slog.Any("error", err))
		srv.enqueueAuthEvent(entity.AuthEvent{Type: entity.AuthEventSignedOut})
	}

	return nil
}

// UpdateUser forwards a metadata change to the provider. The resulting
// USER_UPDATED event refreshes the identity in place.
func (srv *sessionService) UpdateUser(ctx context.Context, input *usecase.UpdateUserInput) error {
	if err := srv.validate.Struct(input); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(util.DescribeValidationError(err))
	}

	user := srv.currentUser()
	if user == nil {
		return errors.Wrap(domainerrors.ErrNotAuthenticated, "update user")
	}

	meta := entity.UserMetadata{DisplayName: input.DisplayName, AccountType: input.AccountType}
	if meta.DisplayName == "" {
		meta.DisplayName = user.Identity.DisplayName
	}

	srv.log(ctx).Info("Updating user metadata", slog.Any("user_id", user.Identity.ID), slog.String("account_type", string(meta.AccountType)))
	if _, err := srv.provider.UpdateUser(ctx, meta); err != nil {
		return errors.Wrap(err, "failed to update user")
	}

	return nil
}

// CompleteOnboarding saves the business profile and closes onboarding in the
// same machine step that publishes the profile.
func (srv *sessionService) CompleteOnboarding(ctx context.Context, data entity.BusinessProfileData) (*entity.BusinessProfile, error) {
	user := srv.currentUser()
	if user == nil {
		return nil, errors.Wrap(domainerrors.ErrNotAuthenticated, "complete onboarding")
	}
	if !user.IsBusiness() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("business onboarding is only available to business accounts")
	}

	var existingID *uuid.UUID
	if user.BusinessProfile != nil {
		id := user.BusinessProfile.ID
		existingID = &id
	}

	ownerID := user.Identity.ID
	result := srv.profiles.SaveProfile(ctx, ownerID, data, existingID)
	if !result.OK() {
		return nil, result.Err
	}

	err := srv.do(ctx, func() error {
		if srv.user == nil || srv.user.Identity.ID != ownerID {
			return errors.Wrap(domainerrors.ErrNotAuthenticated, "session changed while saving the profile")
		}
		srv.user.BusinessProfile = result.Profile
		srv.onboardingResolved = true
		srv.profileVersion++

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Onboarding completed", slog.Any("user_id", ownerID), slog.Any("profile_id", result.Profile.ID))
	profile := *result.Profile

	return &profile, nil
}

func (srv *sessionService) SkipOnboarding(ctx context.Context) error {
	return srv.do(ctx, func() error {
		if srv.user == nil {
			return errors.Wrap(domainerrors.ErrNotAuthenticated, "skip onboarding")
		}
		srv.onboardingResolved = true

		return nil
	})
}

func (srv *sessionService) CompleteIndividualProfile(ctx context.Context, data entity.IndividualProfileData) (*entity.IndividualProfile, error) {
	user := srv.currentUser()
	if user == nil {
		return nil, errors.Wrap(domainerrors.ErrNotAuthenticated, "complete individual profile")
	}
	if !user.IsIndividual() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("individual profile is only available to individual accounts")
	}

	var existingID *uuid.UUID
	if user.IndividualProfile != nil {
		id := user.IndividualProfile.ID
		existingID = &id
	}

	ownerID := user.Identity.ID
	result := srv.profiles.SaveIndividualProfile(ctx, ownerID, data, existingID)
	if !result.OK() {
		return nil, result.Err
	}

	err := srv.do(ctx, func() error {
		if srv.user == nil || srv.user.Identity.ID != ownerID {
			return errors.Wrap(domainerrors.ErrNotAuthenticated, "session changed while saving the profile")
		}
		srv.user.IndividualProfile = result.Profile
		srv.profileVersion++

		return nil
	})
	if err != nil {
		return nil, err
	}

	profile := *result.Profile

	return &profile, nil
}

// RefreshProfile re-reads the profile outside the resolution guard and
// surfaces gateway errors to the caller.
func (srv *sessionService) RefreshProfile(ctx context.Context) (*entity.SessionUser, error) {
	srv.mu.RLock()
	user, version := srv.user.Clone(), srv.profileVersion
	srv.mu.RUnlock()
	if user == nil {
		return nil, errors.Wrap(domainerrors.ErrNotAuthenticated, "refresh profile")
	}
	ownerID := user.Identity.ID

	var apply func()
	if user.IsIndividual() {
		profile, err := srv.profiles.FetchIndividualProfile(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		apply = func() { srv.user.IndividualProfile = profile }
	} else {
		profile, err := srv.profiles.FetchProfile(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		apply = func() {
			srv.user.BusinessProfile = profile
			if profile != nil {
				srv.onboardingResolved = true
			}
		}
	}

	var refreshed *entity.SessionUser
	err := srv.do(ctx, func() error {
		if srv.user == nil || srv.user.Identity.ID != ownerID {
			return errors.Wrap(domainerrors.ErrNotAuthenticated, "session changed while refreshing the profile")
		}
		if srv.profileVersion == version {
			apply()
			srv.profileVersion++
		} else {
			srv.logger.Debug("Profile saved during refresh, keeping the saved profile", "userID", ownerID)
		}
		refreshed = srv.user.Clone()

		return nil
	})
	if err != nil {
		return nil, err
	}

	return refreshed, nil
}
