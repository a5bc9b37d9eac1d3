// Package session persists the agent's registry identity between runs. The
// identity is minted once by the registry at registration time and the
// token in it cannot be recovered, so losing the file means re-enrolling
// under a fresh name.
package session

import (
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/telemetryforge/agent/internal/util"
)

const sessionKey = "agent-session"

// Session is the persisted registry identity of this agent.
type Session struct {
	AgentID    string `msgpack:"agent_id"`
	AgentToken string `msgpack:"agent_token"`
	CreatedAt  int64  `msgpack:"created_at"`
}

// Store reads and writes the persisted session.
type Store interface {
	Load() (*Session, error)
	Save(session *Session) error
	Clear() error
}

type store struct {
	kv util.KVStore
}

// NewStore returns a session store backed by kv.
func NewStore(kv util.KVStore) Store {
	return &store{kv: kv}
}

// Load returns the persisted session, or (nil, nil) when none was saved yet.
func (s *store) Load() (*Session, error) {
	data, err := s.kv.Get(sessionKey)
	if err != nil {
		if err == util.ErrKVNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read session")
	}

	session := &Session{}
	if err := msgpack.Unmarshal(data, session); err != nil {
		return nil, errors.Wrap(err, "failed to decode session")
	}
	return session, nil
}

// Save persists the session, stamping CreatedAt when it is unset.
func (s *store) Save(session *Session) error {
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}

	data, err := msgpack.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}
	if err := s.kv.Set(sessionKey, data); err != nil {
		return errors.Wrap(err, "failed to write session")
	}
	return nil
}

// Clear removes the persisted session.
func (s *store) Clear() error {
	if err := s.kv.Del(sessionKey); err != nil && err != util.ErrKVNotFound {
		return errors.Wrap(err, "failed to remove session")
	}
	return nil
}
