package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/course-portal/portal/internal/rbac"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionStatus tracks whether a session has been resolved from storage.
type SessionStatus int

const (
	// StatusUnresolved is the zero value: restoration has not completed yet.
	StatusUnresolved SessionStatus = iota
	// StatusAnonymous means no identity is attached.
	StatusAnonymous
	// StatusAuthenticated means both identity and credential are attached.
	StatusAuthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unresolved"
	}
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
	sealer     *Sealer
	logger     *slog.Logger
}

// Session holds per-request session data. Identity and credential only change
// together through Login and Logout.
type Session struct {
	ID         string
	values     map[string]string
	identity   *rbac.Identity
	credential string
	status     SessionStatus
	flashes    []FlashMessage
	isNew      bool
	dirty      bool
	rotate     bool
	previousID string
}

type sessionPayload struct {
	Values     map[string]string `json:"values"`
	Identity   *rbac.Identity    `json:"identity,omitempty"`
	Credential string            `json:"credential,omitempty"`
	Flashes    []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager. The secret seeds both session
// ID hardening and the credential sealing key.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) (*SessionManager, error) {
	sealer, err := NewSealer(secret)
	if err != nil {
		return nil, err
	}
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
		sealer:     sealer,
		logger:     slog.Default(),
	}, nil
}

// WithLogger sets the logger used to report discarded session records.
func (sm *SessionManager) WithLogger(logger *slog.Logger) *SessionManager {
	if logger != nil {
		sm.logger = logger
	}
	return sm
}

// Load resolves the session for the request. Anything short of a complete,
// readable record resolves to an anonymous session; only storage errors fail.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := sm.newSession()
			sess.ID = cookie.Value
			return sess, nil
		}
		return nil, err
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	sess.isNew = false
	sess.dirty = false

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		sm.logger.Warn("discard unreadable session", slog.String("session", sess.ID), slog.Any("error", err))
		sess.dirty = true
		return sess, nil
	}
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.flashes = stored.Flashes
	sm.restore(sess, stored)
	return sess, nil
}

func (sm *SessionManager) restore(sess *Session, stored sessionPayload) {
	if stored.Identity == nil && stored.Credential == "" {
		return
	}
	reason := ""
	switch {
	case stored.Identity == nil:
		reason = "credential without identity"
	case stored.Credential == "":
		reason = "identity without credential"
	default:
		if err := stored.Identity.Validate(); err != nil {
			reason = err.Error()
			break
		}
		credential, err := sm.sealer.Open(stored.Credential)
		if err != nil {
			reason = "credential cannot be opened"
			break
		}
		identity := stored.Identity.Clone()
		sess.identity = &identity
		sess.credential = credential
		sess.status = StatusAuthenticated
		return
	}
	sm.logger.Warn("session restored as anonymous", slog.String("session", sess.ID), slog.String("reason", reason))
	sess.dirty = true
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.rotate {
		if sess.previousID != "" {
			if err := sm.client.Del(ctx, sm.redisKey(sess.previousID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}
		sess.rotate = false
		sess.previousID = ""
		sess.dirty = true
	}

	if sess.ID == "" {
		sess.ID = sm.generateSessionID()
	}

	if sess.dirty || sess.isNew {
		data, err := sm.encode(sess)
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

func (sm *SessionManager) encode(sess *Session) ([]byte, error) {
	payload := sessionPayload{Values: sess.values, Flashes: sess.flashes}
	if sess.status == StatusAuthenticated && sess.identity != nil {
		sealed, err := sm.sealer.Seal(sess.credential)
		if err != nil {
			return nil, err
		}
		payload.Identity = sess.identity
		payload.Credential = sealed
	}
	return json.Marshal(payload)
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Login replaces identity and credential in one step and moves the session to a
// fresh ID; Commit drops the record stored under the old one.
func (s *Session) Login(identity rbac.Identity, credential string) {
	cloned := identity.Clone()
	s.identity = &cloned
	s.credential = credential
	s.status = StatusAuthenticated
	if !s.rotate {
		s.previousID = s.ID
		s.rotate = true
	}
	s.ID = uuid.NewString()
	s.dirty = true
}

// Logout clears identity and credential. Calling it on an anonymous session is a no-op
// apart from resolving the status.
func (s *Session) Logout() {
	if s.identity != nil || s.credential != "" {
		s.dirty = true
	}
	s.identity = nil
	s.credential = ""
	s.status = StatusAnonymous
}

// CurrentUser returns the authenticated identity or nil.
func (s *Session) CurrentUser() *rbac.Identity {
	if s == nil || s.status != StatusAuthenticated {
		return nil
	}
	return s.identity
}

// Credential returns the bearer credential of an authenticated session.
func (s *Session) Credential() (string, bool) {
	if s == nil || s.status != StatusAuthenticated || s.credential == "" {
		return "", false
	}
	return s.credential, true
}

// IsLoading reports whether restoration has not completed yet.
func (s *Session) IsLoading() bool {
	return s == nil || s.status == StatusUnresolved
}

// Status returns the resolution state.
func (s *Session) Status() SessionStatus {
	if s == nil {
		return StatusUnresolved
	}
	return s.status
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     sm.generateSessionID(),
		values: make(map[string]string),
		status: StatusAnonymous,
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(sm.secret) > 0 {
		for i := range b {
			b[i] ^= sm.secret[i%len(sm.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
