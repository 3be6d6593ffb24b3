package fakeuserrepo

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bazrganidrwst/warehouse-client/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[int64]*users.User
	usernameIDs map[string]int64 // lower-cased username to user id
	nextID      int64
	lock        sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:       make(map[int64]*users.User),
		usernameIDs: make(map[string]int64),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == 0 {
		ur.nextID++
		user.ID = ur.nextID
	} else if user.ID > ur.nextID {
		ur.nextID = user.ID
	}
	if prev, ok := ur.users[user.ID]; ok {
		delete(ur.usernameIDs, strings.ToLower(prev.Username))
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now()
	}
	ur.users[user.ID] = user
	ur.usernameIDs[strings.ToLower(user.Username)] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(id int64) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrNotFound
	}
	delete(ur.usernameIDs, strings.ToLower(user.Username))
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIDs[strings.ToLower(username)]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		userList = append(userList, v)
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})

	if offset >= len(userList) {
		return nil, nil
	}
	end := len(userList)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) SetLoggedIn(id int64, at time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrNotFound
	}
	user.LastLogin = at
	return nil
}
