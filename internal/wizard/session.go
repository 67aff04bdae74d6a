package wizard

import (
	"sync"
	"time"

	"tallerbot/internal/form"
)

// Step is the field cursor inside the form screen.
type Step string

const (
	StepNone     Step = "none"
	StepName     Step = "name"
	StepPhone    Step = "phone"
	StepEmail    Step = "email"
	StepService  Step = "service"
	StepOther    Step = "other_service"
	StepDate     Step = "date"
	StepTime     Step = "time"
	StepComments Step = "comments"
	StepTerms    Step = "terms"
	StepConfirm  Step = "confirm"
)

// formOrder is the forward walk through the form fields.
var formOrder = []Step{
	StepName, StepPhone, StepEmail, StepService, StepOther,
	StepDate, StepTime, StepComments, StepTerms, StepConfirm,
}

// Next returns the step after s, skipping the free-text service
// description unless "otro" was picked.
func (s *Session) Next() Step {
	for i, step := range formOrder {
		if step != s.Step {
			continue
		}
		if i+1 >= len(formOrder) {
			return StepConfirm
		}
		next := formOrder[i+1]
		if next == StepOther && s.Draft.Service != otherService {
			return formOrder[i+2]
		}
		return next
	}
	return StepName
}

// Prev returns the step before s, skipping the free-text service
// description unless "otro" was picked. From the first field there is
// no previous step; the caller leaves the form instead.
func (s *Session) Prev() (Step, bool) {
	for i, step := range formOrder {
		if step != s.Step {
			continue
		}
		if i == 0 {
			return StepName, false
		}
		prev := formOrder[i-1]
		if prev == StepOther && s.Draft.Service != otherService {
			return formOrder[i-2], true
		}
		return prev, true
	}
	return StepName, false
}

const otherService = "otro"

// Session is one user's progress through the wizard.
type Session struct {
	ChatID    int64        `json:"chat_id"`
	Screen    Screen       `json:"screen"`
	Step      Step         `json:"step"`
	Draft     form.Request `json:"draft"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSession starts a fresh session on the welcome screen.
func NewSession(chatID int64) *Session {
	return &Session{
		ChatID:    chatID,
		Screen:    ScreenWelcome,
		Step:      StepNone,
		UpdatedAt: time.Now(),
	}
}

// Store keeps wizard sessions keyed by chat.
type Store interface {
	Get(chatID int64) (*Session, error)
	Put(s *Session) error
	Delete(chatID int64) error
}

// MemoryStore is the in-process Store with session expiry.
type MemoryStore struct {
	mu      sync.Mutex
	m       map[int64]*Session
	timeout time.Duration
}

// DefaultSessionTimeout resets abandoned forms.
const DefaultSessionTimeout = 30 * time.Minute

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &MemoryStore{m: make(map[int64]*Session), timeout: timeout}
}

// Get returns the live session for a chat, or a fresh one when none
// exists or the previous one expired.
func (s *MemoryStore) Get(chatID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.m[chatID]
	if sess == nil || time.Since(sess.UpdatedAt) > s.timeout {
		sess = NewSession(chatID)
		s.m[chatID] = sess
	}
	return sess, nil
}

// Put stores the session and refreshes its expiry.
func (s *MemoryStore) Put(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = time.Now()
	s.m[sess.ChatID] = sess
	return nil
}

// Delete removes the session for a chat.
func (s *MemoryStore) Delete(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
	return nil
}

// Cleanup removes expired sessions and reports how many were dropped.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for chatID, sess := range s.m {
		if time.Since(sess.UpdatedAt) > s.timeout {
			delete(s.m, chatID)
			removed++
		}
	}
	return removed
}
