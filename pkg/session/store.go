/*
 * Copyright 2018 The Service Manager Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package session

import (
	"context"
	"sync"
	"time"

	"github.com/Peripli/character-gallery/pkg/characterapi"
	"github.com/Peripli/character-gallery/pkg/paging"
	"github.com/Peripli/service-manager/pkg/log"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// ErrLimitReached is returned when no more sessions can be created
var ErrLimitReached = errors.New("session limit reached")

// Session is the state of one gallery view
type Session struct {
	ID        string
	Paginator *paging.Paginator[characterapi.Character]

	mutex    sync.Mutex
	lastSeen time.Time
}

// LastSeen returns the last time the session was used
func (s *Session) LastSeen() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastSeen = now
}

// Store keeps the sessions of the running views in memory
type Store struct {
	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	mutex    sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store. Sessions unused for longer than ttl are removed by Sweep.
func NewStore(ttl time.Duration, maxSessions int) *Store {
	return &Store{
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		sessions:    map[string]*Session{},
	}
}

// Create starts a new session whose list is pre-populated with first, loaded from origin
func (s *Store) Create(loader paging.Loader[characterapi.Character], origin paging.Cursor, first *paging.Page[characterapi.Character]) (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "error generating session id")
	}

	session := &Session{
		ID:        id.String(),
		Paginator: paging.NewPaginator(loader, origin, first),
		lastSeen:  s.now(),
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return nil, ErrLimitReached
	}
	s.sessions[session.ID] = session

	return session, nil
}

// Get returns the session with the given id and marks it as used
func (s *Store) Get(id string) (*Session, error) {
	s.mutex.Lock()
	session, found := s.sessions[id]
	s.mutex.Unlock()

	if !found {
		return nil, ErrNotFound
	}
	session.touch(s.now())
	return session, nil
}

// Touch marks the session with the given id as used
func (s *Store) Touch(id string) error {
	_, err := s.Get(id)
	return err
}

// Delete discards the session with the given id
func (s *Store) Delete(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}

// Sweep removes the sessions that were not used within the ttl and returns how many were removed
func (s *Store) Sweep() int {
	deadline := s.now().Add(-s.ttl)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.LastSeen().Before(deadline) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Start sweeps expired sessions every interval until ctx is done
func (s *Store) Start(ctx context.Context, interval time.Duration, group *sync.WaitGroup) {
	group.Add(1)
	go func() {
		defer group.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.C(ctx).Info("Context cancelled. Terminating session sweeper.")
				return
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					log.C(ctx).Debugf("Removed %d expired sessions", removed)
				}
			}
		}
	}()
}
