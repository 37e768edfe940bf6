package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps sessions in memory, keyed by a random id.
// Get returns a copy; changes are kept with Save.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	idleTTL  time.Duration

	nowFunc func() time.Time // mockable
}

func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]Session),
		idleTTL:  idleTTL,
		nowFunc:  time.Now,
	}
}

func (st *Store) New() Session {
	now := st.nowFunc().UTC()
	sess := newSession(uuid.New().String(), now)

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess.clone()
}

func (st *Store) Get(id string) (Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// Save replaces the stored session. Sessions deleted in the meantime are not resurrected,
// and a copy taken before the stored session was logged in or cleared is dropped.
func (st *Store) Save(sess Session) bool {
	sess = sess.clone()
	sess.SeenAt = st.nowFunc().UTC()

	st.mu.Lock()
	defer st.mu.Unlock()
	cur, ok := st.sessions[sess.ID]
	if !ok || cur.Generation > sess.Generation {
		return false
	}
	st.sessions[sess.ID] = sess
	return true
}

// Rotate moves sess to a fresh id and forgets the old one. Tokens naming the old id stop working.
func (st *Store) Rotate(sess Session) Session {
	sess = sess.clone()
	oldID := sess.ID
	sess.ID = uuid.New().String()
	sess.SeenAt = st.nowFunc().UTC()

	st.mu.Lock()
	delete(st.sessions, oldID)
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess.clone()
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions unseen for longer than the idle TTL and returns how many were removed.
func (st *Store) Sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	var n int
	for id, sess := range st.sessions {
		if now.Sub(sess.SeenAt) > st.idleTTL {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}
