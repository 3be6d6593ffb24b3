package refreshrepofake

import (
	"errors"
	"sync"

	"github.com/bazrganidrwst/warehouse-client/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens     map[string]*refresh.StoredRefreshToken
	sessionIDs map[string]string // session ID to token
	lock       sync.RWMutex
}

func NewFakeRefreshTokenRepo() refresh.Repo {
	return &FakeRefreshTokenRepo{
		tokens:     make(map[string]*refresh.StoredRefreshToken),
		sessionIDs: make(map[string]string),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.tokens[refreshToken.Token] = refreshToken
	tr.sessionIDs[refreshToken.SessionID] = refreshToken.Token
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return errors.New("not found")
	}
	if tr.sessionIDs[rt.SessionID] == token {
		delete(tr.sessionIDs, rt.SessionID)
	}
	delete(tr.tokens, token)
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	rt, ok := tr.tokens[token]
	if !ok {
		return nil, errors.New("not found")
	}
	return rt, nil
}

func (tr *FakeRefreshTokenRepo) GetBySessionID(sessionID string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	token, ok := tr.sessionIDs[sessionID]
	if !ok {
		return nil, errors.New("not found")
	}
	return tr.tokens[token], nil
}

func (tr *FakeRefreshTokenRepo) DeleteByUserID(userID int64) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for token, rt := range tr.tokens {
		if rt.UserID != userID {
			continue
		}
		delete(tr.tokens, token)
		if tr.sessionIDs[rt.SessionID] == token {
			delete(tr.sessionIDs, rt.SessionID)
		}
	}
	return nil
}
