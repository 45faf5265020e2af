// ABOUTME: Local session record with two built-in accounts
// ABOUTME: Presence of the stored session is the only authentication check
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/google/uuid"
)

// SessionKey is where the signed-in session is stored.
const SessionKey = "kion.auth"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleDemo  Role = "demo"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrReadOnly           = errors.New("demo session is read-only")
)

// Account is a built-in user.
type Account struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     Role
}

// Accounts are the only users that can sign in.
var Accounts = []Account{
	{ID: "admin-1", Email: "admin@kioncrm.com", Password: "Admin123!", Name: "Admin User", Role: RoleAdmin},
	{ID: "demo-1", Email: "demo@kioncrm.com", Password: "demo", Name: "Demo User", Role: RoleDemo},
}

// Session is the persisted authentication record. ID is the account id.
// Token is a reversible encoding of email and sign-in time, not a credential.
// SessionID tells two sign-ins of the same account apart.
type Session struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Token     string `json:"token"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Session) CanWrite() bool {
	return s != nil && s.Role == RoleAdmin
}

type Manager struct {
	store kv.Store
	now   func() time.Time
}

func NewManager(store kv.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Login checks the credentials against the built-in accounts and persists a session.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	for _, acct := range Accounts {
		if acct.Email == email && subtle.ConstantTimeCompare([]byte(acct.Password), []byte(password)) == 1 {
			return m.start(ctx, acct, acct.Email)
		}
	}
	return nil, ErrInvalidCredentials
}

// LoginAsDemo signs in as the demo account without a password.
func (m *Manager) LoginAsDemo(ctx context.Context) (*Session, error) {
	for _, acct := range Accounts {
		if acct.Role == RoleDemo {
			return m.start(ctx, acct, "demo")
		}
	}
	return nil, fmt.Errorf("no demo account configured")
}

func (m *Manager) start(ctx context.Context, acct Account, tokenSubject string) (*Session, error) {
	sess := &Session{
		ID:        acct.ID,
		Email:     acct.Email,
		Name:      acct.Name,
		Role:      acct.Role,
		Token:     EncodeToken(tokenSubject, m.now()),
		SessionID: uuid.NewString(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, SessionKey, data); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// Logout removes the session. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context) error {
	return m.store.Delete(ctx, SessionKey)
}

// Current returns the stored session, or nil, nil when signed out.
// An unreadable record counts as signed out.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	data, err := m.store.Get(ctx, SessionKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, nil
	}
	return &sess, nil
}

// RequireSession returns the current session or ErrNotSignedIn.
func (m *Manager) RequireSession(ctx context.Context) (*Session, error) {
	sess, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	return sess, nil
}

// RequireWriter returns the current session if it may mutate data.
func (m *Manager) RequireWriter(ctx context.Context) (*Session, error) {
	sess, err := m.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.CanWrite() {
		return nil, ErrReadOnly
	}
	return sess, nil
}

func EncodeToken(subject string, at time.Time) string {
	return base64.StdEncoding.EncodeToString([]byte(subject + ":" + strconv.FormatInt(at.UnixMilli(), 10)))
}

// DecodeToken reverses EncodeToken.
func DecodeToken(token string) (string, time.Time, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token: %w", err)
	}
	i := strings.LastIndex(string(raw), ":")
	if i < 0 {
		return "", time.Time{}, fmt.Errorf("invalid token: missing timestamp")
	}
	ms, err := strconv.ParseInt(string(raw[i+1:]), 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid token: %w", err)
	}
	return string(raw[:i]), time.UnixMilli(ms), nil
}
