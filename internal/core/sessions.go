package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultFormSessionTTL is how long an idle form session is kept.
const DefaultFormSessionTTL = 30 * time.Minute

// FormSessions keeps in-progress forms keyed by an opaque session id.
// Sessions idle for longer than the TTL are dropped by Sweep.
type FormSessions struct {
	newForm func() *Form
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	forms map[uuid.UUID]*formSession
}

type formSession struct {
	form     *Form
	lastSeen time.Time
}

// NewFormSessions creates a registry that builds forms with newForm.
func NewFormSessions(newForm func() *Form, ttl time.Duration) *FormSessions {
	if ttl <= 0 {
		ttl = DefaultFormSessionTTL
	}
	return &FormSessions{
		newForm: newForm,
		ttl:     ttl,
		now:     time.Now,
		forms:   make(map[uuid.UUID]*formSession),
	}
}

// Create starts a new form session.
func (s *FormSessions) Create() (uuid.UUID, *Form) {
	id := uuid.New()
	form := s.newForm()

	s.mu.Lock()
	s.forms[id] = &formSession{form: form, lastSeen: s.now()}
	s.mu.Unlock()

	return id, form
}

// Get returns the form for id and refreshes its last access time.
// Unknown and expired sessions return ErrFormNotFound.
func (s *FormSessions) Get(id uuid.UUID) (*Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.forms, id)
		return nil, ErrFormNotFound
	}
	sess.lastSeen = now
	return sess.form, nil
}

// Resolve returns the form for a raw session id, creating a new session
// when raw is empty, malformed or expired. The returned id is the one the
// caller should hand back to the client.
func (s *FormSessions) Resolve(raw string) (uuid.UUID, *Form) {
	if id, err := uuid.Parse(raw); err == nil {
		if form, err := s.Get(id); err == nil {
			return id, form
		}
	}
	return s.Create()
}

// Delete removes a session. It reports whether the session existed.
func (s *FormSessions) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.forms[id]
	delete(s.forms, id)
	return ok
}

// Sweep drops every session idle for longer than the TTL and returns the
// number removed.
func (s *FormSessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.forms {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.forms, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *FormSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}
