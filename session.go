package hxform

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pthm/hxform/lib/encoding"
)

// SessionContainer holds the state of one controller between requests.
type SessionContainer struct {
	// Values holds the submitted values of each page.
	Values map[string]map[string]any `msgpack:"values"`
	// Valid holds the validation status of each page. A page without an
	// entry has not been seen yet.
	Valid map[string]bool `msgpack:"valid"`
	// Defaults are default values shared by all pages.
	Defaults map[string]any `msgpack:"defaults,omitempty"`
	// Opaque stores application data alongside the form state.
	Opaque map[string]any `msgpack:"opaque,omitempty"`
}

func newSessionContainer() *SessionContainer {
	return &SessionContainer{
		Values: make(map[string]map[string]any),
		Valid:  make(map[string]bool),
	}
}

func (c *SessionContainer) normalize() {
	if c.Values == nil {
		c.Values = make(map[string]map[string]any)
	}
	if c.Valid == nil {
		c.Valid = make(map[string]bool)
	}
}

func (c *SessionContainer) StoreValues(page string, values map[string]any) {
	c.Values[page] = values
}

// PageValues returns the stored values of page, nil if none.
func (c *SessionContainer) PageValues(page string) map[string]any {
	return c.Values[page]
}

func (c *SessionContainer) StoreValidationStatus(page string, valid bool) {
	c.Valid[page] = valid
}

// ValidationStatus returns the stored status of page; seen is false for a
// page that was never validated.
func (c *SessionContainer) ValidationStatus(page string) (valid, seen bool) {
	valid, seen = c.Valid[page]
	return valid, seen
}

func (c *SessionContainer) StoreOpaque(key string, v any) {
	if c.Opaque == nil {
		c.Opaque = make(map[string]any)
	}
	c.Opaque[key] = v
}

func (c *SessionContainer) OpaqueValue(key string) any { return c.Opaque[key] }

func (c *SessionContainer) clone() *SessionContainer {
	out := &SessionContainer{
		Values:   make(map[string]map[string]any, len(c.Values)),
		Valid:    maps.Clone(c.Valid),
		Defaults: cloneValues(c.Defaults),
		Opaque:   cloneValues(c.Opaque),
	}
	for k, v := range c.Values {
		out.Values[k] = cloneValues(v)
	}
	out.normalize()
	return out
}

// SessionStore opens the session of a request.
type SessionStore interface {
	Open(w http.ResponseWriter, r *http.Request) (Session, error)
}

// Session stores controller containers by key for one request. Put must
// be called before the response body is written, since stores may need to
// set cookies.
type Session interface {
	Get(key string) (*SessionContainer, bool, error)
	Put(key string, c *SessionContainer) error
	Delete(key string) error
}

// DefaultSessionCookie names the cookie holding the MemoryStore session id.
const DefaultSessionCookie = "hxform_sid"

// MemoryStore keeps sessions in process memory, identified by a random id
// cookie. Sessions idle for longer than the TTL are dropped.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	cookie   string
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	containers map[string]*SessionContainer
	touched    time.Time
}

// NewMemoryStore returns a store expiring sessions after ttl of
// inactivity. A zero ttl keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		cookie:   DefaultSessionCookie,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Open(w http.ResponseWriter, r *http.Request) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	if c, err := r.Cookie(s.cookie); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			sess.touched = s.now()
			return &memoryHandle{store: s, id: c.Value}, nil
		}
	}
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	s.sessions[id] = &memorySession{containers: make(map[string]*SessionContainer), touched: s.now()}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return &memoryHandle{store: s, id: id}, nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) expire() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("hxform: session id: %w", err)
	}
	return id.String(), nil
}

type memoryHandle struct {
	store *MemoryStore
	id    string
}

func (h *memoryHandle) session() *memorySession {
	sess, ok := h.store.sessions[h.id]
	if !ok {
		sess = &memorySession{containers: make(map[string]*SessionContainer)}
		h.store.sessions[h.id] = sess
	}
	sess.touched = h.store.now()
	return sess
}

func (h *memoryHandle) Get(key string) (*SessionContainer, bool, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	c, ok := h.session().containers[key]
	if !ok {
		return nil, false, nil
	}
	return c.clone(), true, nil
}

func (h *memoryHandle) Put(key string, c *SessionContainer) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.session().containers[key] = c.clone()
	return nil
}

func (h *memoryHandle) Delete(key string) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	sess := h.session()
	delete(sess.containers, key)
	if len(sess.containers) == 0 {
		delete(h.store.sessions, h.id)
	}
	return nil
}

// Encoder signs or encrypts session containers for cookies.
type Encoder = encoding.Encoder

// NewEncoder returns an encoder keyed with key. Keys shorter than 32
// bytes are stretched with SHA-256.
func NewEncoder(key []byte) (*Encoder, error) {
	return encoding.NewEncoder(key)
}

// wrapEncodingError reports lib/encoding failures as package sentinels.
func wrapEncodingError(err error) error {
	switch {
	case errors.Is(err, encoding.ErrInvalidFormat):
		return ErrInvalidFormat
	case errors.Is(err, encoding.ErrSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, encoding.ErrDecryptFailed):
		return ErrDecryptFailed
	}
	return err
}

// CookieStore keeps containers in cookies, msgpack-encoded and signed, or
// encrypted when created with encrypt set.
type CookieStore struct {
	encoder *Encoder
	encrypt bool
	// Path and Secure apply to the cookies written.
	Path   string
	Secure bool
	MaxAge int
}

func NewCookieStore(key []byte, encrypt bool) (*CookieStore, error) {
	enc, err := NewEncoder(key)
	if err != nil {
		return nil, err
	}
	return &CookieStore{encoder: enc, encrypt: encrypt, Path: "/"}, nil
}

func (s *CookieStore) Open(w http.ResponseWriter, r *http.Request) (Session, error) {
	return &cookieSession{store: s, w: w, r: r, written: make(map[string]*SessionContainer)}, nil
}

type cookieSession struct {
	store   *CookieStore
	w       http.ResponseWriter
	r       *http.Request
	written map[string]*SessionContainer
}

func (s *cookieSession) Get(key string) (*SessionContainer, bool, error) {
	if c, ok := s.written[key]; ok {
		if c == nil {
			return nil, false, nil
		}
		return c.clone(), true, nil
	}
	cookie, err := s.r.Cookie(key)
	if err != nil {
		return nil, false, nil
	}
	var c SessionContainer
	if err := s.store.encoder.Decode(cookie.Value, s.store.encrypt, &c); err != nil {
		return nil, false, wrapEncodingError(err)
	}
	c.normalize()
	return &c, true, nil
}

func (s *cookieSession) Put(key string, c *SessionContainer) error {
	encoded, err := s.store.encoder.Encode(c, s.store.encrypt)
	if err != nil {
		return err
	}
	s.written[key] = c.clone()
	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    encoded,
		Path:     s.store.Path,
		MaxAge:   s.store.MaxAge,
		Secure:   s.store.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *cookieSession) Delete(key string) error {
	s.written[key] = nil
	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     s.store.Path,
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}
