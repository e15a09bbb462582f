// Package session tracks who is signed in and which role they hold.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smartplate/internal/utils"
	"smartplate/pkg/types"

	"github.com/sirupsen/logrus"
)

type EventKind string

const (
	EventSignedIn     EventKind = "signed_in"
	EventSignedOut    EventKind = "signed_out"
	EventRoleResolved EventKind = "role_resolved"
	EventRoleFailed   EventKind = "role_failed"
)

type Event struct {
	Kind   EventKind
	UserID string
	Role   types.Role
	Err    error
}

const (
	subscriberBuffer = 16
	authQueueSize    = 64
)

// Manager owns the auth-event loop. Role lookups after sign in are deferred
// onto a timer instead of running inside the event handler.
type Manager struct {
	identity Identity
	accounts Accounts
	logger   logrus.FieldLogger
	delay    time.Duration

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup
	start sync.Once
	stop  sync.Once

	mu         sync.RWMutex
	roles      map[string]types.Role
	identities map[string]*types.Identity
	pending    map[string]*time.Timer

	// generations is bumped on sign out so role fetches already in flight
	// do not repopulate the cache.
	generations map[string]uint64

	subMu  sync.Mutex
	subID  uint64
	subs   map[uint64]chan Event
	closed bool
}

func NewManager(identity Identity, accounts Accounts, logger logrus.FieldLogger, roleFetchDelay time.Duration) *Manager {
	return &Manager{
		identity:    identity,
		accounts:    accounts,
		logger:      logger,
		delay:       roleFetchDelay,
		queue:       make(chan Event, authQueueSize),
		done:        make(chan struct{}),
		roles:       make(map[string]types.Role),
		identities:  make(map[string]*types.Identity),
		pending:     make(map[string]*time.Timer),
		generations: make(map[string]uint64),
		subs:        make(map[uint64]chan Event),
	}
}

// Start runs the auth-event loop until ctx is cancelled or Close is called.
func (m *Manager) Start(ctx context.Context) {
	m.start.Do(func() {
		m.wg.Add(1)
		go m.loop(ctx)
	})
}

// Close stops the loop, cancels scheduled role fetches and closes every
// subscriber channel.
func (m *Manager) Close() {
	m.stop.Do(func() {
		close(m.done)
		m.wg.Wait()

		m.mu.Lock()
		for userID, timer := range m.pending {
			timer.Stop()
			delete(m.pending, userID)
		}
		m.mu.Unlock()

		m.subMu.Lock()
		m.closed = true
		for id, ch := range m.subs {
			close(ch)
			delete(m.subs, id)
		}
		m.subMu.Unlock()
	})
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case event := <-m.queue:
			m.handle(event)
		}
	}
}

func (m *Manager) handle(event Event) {
	switch event.Kind {
	case EventSignedIn:
		m.scheduleRoleFetch(event.UserID)
	case EventSignedOut:
		m.mu.Lock()
		if timer, ok := m.pending[event.UserID]; ok {
			timer.Stop()
			delete(m.pending, event.UserID)
		}
		delete(m.roles, event.UserID)
		delete(m.identities, event.UserID)
		m.generations[event.UserID]++
		m.mu.Unlock()
	}

	m.broadcast(event)
}

func (m *Manager) scheduleRoleFetch(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.pending[userID]; ok {
		timer.Stop()
	}

	generation := m.generations[userID]
	m.pending[userID] = time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		delete(m.pending, userID)
		m.mu.Unlock()

		select {
		case <-m.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		role, err := m.fetchRole(ctx, userID)
		if !m.current(userID, generation) {
			return
		}
		if err != nil {
			m.logger.WithError(err).WithField("user_id", userID).Warn("failed to resolve role after sign in")
			m.broadcast(Event{Kind: EventRoleFailed, UserID: userID, Err: err})
			return
		}
		m.broadcast(Event{Kind: EventRoleResolved, UserID: userID, Role: role})
	})
}

func (m *Manager) emit(event Event) {
	select {
	case m.queue <- event:
	case <-m.done:
	}
}

// Subscribe returns a channel of session events and a func that ends the
// subscription. Slow subscribers miss events rather than stall the loop.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if m.closed {
		close(ch)
		return ch, func() {}
	}

	m.subID++
	id := m.subID
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if sub, ok := m.subs[id]; ok {
				close(sub)
				delete(m.subs, id)
			}
		})
	}
}

func (m *Manager) broadcast(event Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- event:
		default:
			m.logger.WithField("kind", event.Kind).Debug("session subscriber full, dropping event")
		}
	}
}

// SignUp creates the identity and then the local user, profile and role
// rows in one transaction.
func (m *Manager) SignUp(ctx context.Context, input SignUpInput) (string, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return "", err
	}

	userID, err := m.identity.SignUp(ctx, input)
	if err != nil {
		return "", err
	}

	err = m.accounts.CreateAccount(ctx,
		&types.User{ID: userID, Email: utils.StringPtr(input.Email)},
		&types.Profile{FullName: utils.TrimmedStringPtr(input.FullName), Phone: utils.TrimmedStringPtr(input.Phone)},
		input.Role,
	)
	if err != nil {
		return userID, fmt.Errorf("identity created but account setup failed: %w", err)
	}

	m.logger.WithField("user_id", userID).WithField("role", input.Role).Info("user signed up")

	return userID, nil
}

func (m *Manager) ConfirmSignUp(ctx context.Context, email, code string) error {
	return m.identity.ConfirmSignUp(ctx, email, code)
}

// SignIn returns the tokens immediately. The role is resolved afterwards and
// announced with EventRoleResolved or EventRoleFailed.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*types.AuthTokens, *types.Identity, error) {
	tokens, err := m.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	ident, err := m.identity.Identify(ctx, tokens.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to identify signed in user: %w", err)
	}

	m.mu.Lock()
	m.identities[ident.UserID] = ident
	delete(m.roles, ident.UserID)
	m.mu.Unlock()

	m.emit(Event{Kind: EventSignedIn, UserID: ident.UserID})

	return tokens, ident, nil
}

func (m *Manager) SignOut(ctx context.Context, userID, accessToken string) error {
	if err := m.identity.SignOut(ctx, accessToken); err != nil {
		return err
	}

	m.emit(Event{Kind: EventSignedOut, UserID: userID})
	return nil
}

// Role returns the cached role, fetching it on a miss.
func (m *Manager) Role(ctx context.Context, userID string) (types.Role, error) {
	m.mu.RLock()
	role, ok := m.roles[userID]
	m.mu.RUnlock()
	if ok {
		return role, nil
	}

	return m.fetchRole(ctx, userID)
}

// RefreshRole drops the cached role and fetches it again.
func (m *Manager) RefreshRole(ctx context.Context, userID string) (types.Role, error) {
	m.mu.Lock()
	delete(m.roles, userID)
	m.mu.Unlock()

	role, err := m.fetchRole(ctx, userID)
	if err != nil {
		m.broadcast(Event{Kind: EventRoleFailed, UserID: userID, Err: err})
		return "", err
	}

	m.broadcast(Event{Kind: EventRoleResolved, UserID: userID, Role: role})
	return role, nil
}

// current reports whether no sign out happened since generation was read.
func (m *Manager) current(userID string, generation uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generations[userID] == generation
}

func (m *Manager) fetchRole(ctx context.Context, userID string) (types.Role, error) {
	m.mu.RLock()
	generation := m.generations[userID]
	m.mu.RUnlock()

	role, err := m.accounts.RoleByUser(ctx, userID)
	if errors.Is(err, types.ErrRoleNotFound) {
		role, err = m.reconcile(ctx, userID)
	}
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.generations[userID] == generation {
		m.roles[userID] = role
	}
	m.mu.Unlock()

	return role, nil
}

// reconcile writes the account rows for an identity whose sign up stopped
// after the identity was created. Only self-selectable roles are restored.
func (m *Manager) reconcile(ctx context.Context, userID string) (types.Role, error) {
	m.mu.RLock()
	ident, ok := m.identities[userID]
	m.mu.RUnlock()

	if !ok {
		var err error
		ident, err = m.identity.Lookup(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to look up identity for role reconciliation: %w", err)
		}
	}

	if !selectableRole(ident.Role) {
		return "", types.ErrRoleNotFound
	}

	err := m.accounts.CreateAccount(ctx,
		&types.User{ID: userID, Email: utils.TrimmedStringPtr(ident.Email)},
		&types.Profile{FullName: utils.TrimmedStringPtr(ident.FullName)},
		ident.Role,
	)
	if err != nil {
		return "", fmt.Errorf("failed to reconcile account: %w", err)
	}

	m.logger.WithField("user_id", userID).WithField("role", ident.Role).Info("reconciled missing role from identity")

	return ident.Role, nil
}
