package main

import (
	"fmt"
	"sync"
	"time"
)

// Signup is a completed signup.
type Signup struct {
	ID        string
	Login     string
	Email     string
	Name      string
	Country   string
	Topics    []string
	CreatedAt time.Time
}

// Store keeps completed signups in memory.
type Store struct {
	mu      sync.RWMutex
	signups map[string]*Signup
	nextID  int
}

func NewStore() *Store {
	return &Store{signups: make(map[string]*Signup), nextID: 1}
}

// Add saves s and returns its ID. Logins must be unique.
func (s *Store) Add(signup Signup) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.signups {
		if existing.Login == signup.Login {
			return "", fmt.Errorf("login %q is taken", signup.Login)
		}
	}
	signup.ID = fmt.Sprintf("signup-%d", s.nextID)
	signup.CreatedAt = time.Now()
	s.nextID++
	s.signups[signup.ID] = &signup
	return signup.ID, nil
}

// Get returns a signup by ID.
func (s *Store) Get(id string) *Signup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signups[id]
}

// LoginTaken reports whether a signup already uses login.
func (s *Store) LoginTaken(login string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.signups {
		if existing.Login == login {
			return true
		}
	}
	return false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signups)
}
