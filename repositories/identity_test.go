package repositories

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"nojschat/errors"
)

func TestIdentityRepository_Create_Then_Find(t *testing.T) {
	req := require.New(t)
	repo := NewIdentityRepository(openTestDB(t), slog.Default())

	created, err := repo.Create("Alice")
	req.NoError(err)
	req.Equal("Alice", created.Handle)
	req.NotZero(created.ID)

	found, err := repo.Find("alice")
	req.NoError(err)
	req.NotNil(found)
	req.Equal(created.ID, found.ID)
	// The value keeps the casing the user first typed.
	req.Equal("Alice", found.Handle)
}

func TestIdentityRepository_Create_RejectsDuplicateHandleCaseInsensitive(t *testing.T) {
	req := require.New(t)
	repo := NewIdentityRepository(openTestDB(t), slog.Default())

	_, err := repo.Create("alice")
	req.NoError(err)

	_, err = repo.Create("ALICE")
	req.ErrorIs(err, errors.ErrDuplicateHandle)
}

func TestIdentityRepository_Find_UnknownHandleReturnsNil(t *testing.T) {
	req := require.New(t)
	repo := NewIdentityRepository(openTestDB(t), slog.Default())

	found, err := repo.Find("ghost")
	req.NoError(err)
	req.Nil(found)
}
