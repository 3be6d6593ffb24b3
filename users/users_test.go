package users_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bazrganidrwst/warehouse-client/users"
	fakeuserrepo "github.com/bazrganidrwst/warehouse-client/users/repofake"
)

const testUserPassword = "password123"

func TestPasswordStrength(t *testing.T) {
	require.Error(t, users.ValidatePasswordStrength("short1"))
	require.Error(t, users.ValidatePasswordStrength("onlyletters"))
	require.Error(t, users.ValidatePasswordStrength("12345678"))
	require.NoError(t, users.ValidatePasswordStrength(testUserPassword))
}

func TestPasswordHash(t *testing.T) {
	u := &users.User{Username: "dara"}
	require.NoError(t, u.SetPassword(testUserPassword))
	require.NotEqual(t, testUserPassword, u.PasswordHash)
	require.True(t, u.CheckPassword(testUserPassword))
	require.False(t, u.CheckPassword("password124"))
}

func TestFakeRepoAssignsIDsAndIndexesUsernames(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	first := &users.User{Username: "Dara", Type: users.TypeAdmin}
	second := &users.User{Username: "shilan", Type: users.TypeEmployee}
	require.NoError(t, repo.Upsert(first))
	require.NoError(t, repo.Upsert(second))
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)

	got, err := repo.GetByUsername("dara")
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)

	first.Username = "dara.k"
	require.NoError(t, repo.Upsert(first))
	_, err = repo.GetByUsername("dara")
	require.ErrorIs(t, err, users.ErrNotFound)

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLoggedIn(second.ID, at))
	got, err = repo.GetByID(second.ID)
	require.NoError(t, err)
	require.Equal(t, at, got.LastLogin)

	list, err := repo.List(1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(first.ID))
	_, err = repo.GetByID(first.ID)
	require.ErrorIs(t, err, users.ErrNotFound)
}
