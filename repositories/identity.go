// Package repositories persists identities and messages in BadgerDB.
// Keys are structured strings so lexicographic order matches domain order.
package repositories

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"nojschat/domain"
	"nojschat/errors"
)

const identityPrefix = "identity:"

type IIdentityRepository interface {
	Create(handle string) (domain.Identity, error)
	Find(handle string) (*domain.Identity, error)
}

type IdentityRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewIdentityRepository(db *badger.DB, log *slog.Logger) IdentityRepository {
	return IdentityRepository{db: db, log: log}
}

// identityRecord is the on-disk shape. The key carries the normalized handle,
// the value keeps the handle as the user first typed it.
type identityRecord struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

func identityKey(handle string) []byte {
	return []byte(identityPrefix + domain.NormalizeHandle(handle))
}

// Create persists a new identity. The existence check and the write share one
// transaction, so two concurrent creates with the same handle cannot both
// succeed.
func (r IdentityRepository) Create(handle string) (domain.Identity, error) {
	identity := domain.Identity{
		ID:        uuid.New(),
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(toIdentityRecord(identity))
	if err != nil {
		return domain.Identity{}, errors.Storage("marshal identity", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := identityKey(handle)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrDuplicateHandle
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		if errors.Is(err, errors.ErrDuplicateHandle) {
			return domain.Identity{}, err
		}
		return domain.Identity{}, errors.Storage("create identity", err)
	}
	return identity, nil
}

// Find returns the identity bound to handle, or nil when the handle has never
// been seen. Lookup is case-insensitive.
func (r IdentityRepository) Find(handle string) (*domain.Identity, error) {
	var record identityRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(identityKey(handle))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage("find identity", err)
	}
	identity, err := fromIdentityRecord(record)
	if err != nil {
		return nil, errors.Storage("decode identity", err)
	}
	return &identity, nil
}

func toIdentityRecord(identity domain.Identity) identityRecord {
	return identityRecord{
		ID:        identity.ID.String(),
		Handle:    identity.Handle,
		CreatedAt: identity.CreatedAt,
	}
}

func fromIdentityRecord(record identityRecord) (domain.Identity, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		ID:        parsedID,
		Handle:    record.Handle,
		CreatedAt: record.CreatedAt.UTC(),
	}, nil
}
