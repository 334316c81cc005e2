package repositories

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"nojschat/domain"
	"nojschat/errors"
)

const (
	messagePrefix = "msg:"
	sequenceKey   = "seq:messages"
)

type IMessageRepository interface {
	Append(author, content string) (domain.Message, error)
	Since(seq uint64, limit int) ([]domain.Message, error)
	Recent(limit int) ([]domain.Message, error)
	LastSeq() (uint64, error)
}

// MessageRepository owns the global sequence counter. Append serializes
// writers with a mutex so sequence reservation commits atomically with the
// message: badger would otherwise abort one of two transactions touching the
// counter key, and a retry loop could reorder commits.
type MessageRepository struct {
	mu  sync.Mutex
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

type messageRecord struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// messageKey pads the sequence to 20 digits so lexicographic key order equals
// sequence order during prefix scans.
func messageKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, seq))
}

// Append assigns the next sequence number and persists the message in one
// transaction. The message is only returned once Badger has committed it.
func (r *MessageRepository) Append(author, content string) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var message domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		last, err := readSeq(txn)
		if err != nil {
			return err
		}
		message = domain.Message{
			ID:        uuid.New(),
			Seq:       last + 1,
			Author:    author,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}
		data, err := json.Marshal(toMessageRecord(message))
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(sequenceKey), encodeSeq(message.Seq)); err != nil {
			return err
		}
		return txn.Set(messageKey(message.Seq), data)
	})
	if err != nil {
		return domain.Message{}, errors.Storage("append message", err)
	}
	return message, nil
}

// Since returns up to limit messages with sequence strictly greater than seq,
// in ascending order. Callers re-invoke with an advanced cursor to page.
func (r *MessageRepository) Since(seq uint64, limit int) ([]domain.Message, error) {
	var records []messageRecord
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(messageKey(seq + 1)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				break
			}
			var record messageRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage("read messages", err)
	}
	return fromMessageRecords(records)
}

// Recent returns the newest limit messages in ascending order, for history
// replay on join. It scans backwards from the highest key, then reverses.
func (r *MessageRepository) Recent(limit int) ([]domain.Message, error) {
	var records []messageRecord
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(messagePrefix)
		// Seek past the last possible message key, then walk backwards.
		seekKey := []byte(messagePrefix + "99999999999999999999")
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				break
			}
			var record messageRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage("read recent messages", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return fromMessageRecords(records)
}

// LastSeq returns the highest assigned sequence number, zero when no message
// has ever been stored.
func (r *MessageRepository) LastSeq() (uint64, error) {
	var last uint64
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		last, err = readSeq(txn)
		return err
	})
	if err != nil {
		return 0, errors.Storage("read sequence", err)
	}
	return last, nil
}

func readSeq(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(sequenceKey))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var last uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("sequence counter corrupted: %d bytes", len(val))
		}
		last = binary.BigEndian.Uint64(val)
		return nil
	})
	return last, err
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func toMessageRecord(message domain.Message) messageRecord {
	return messageRecord{
		ID:        message.ID.String(),
		Seq:       message.Seq,
		Author:    message.Author,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
}

func fromMessageRecords(records []messageRecord) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(records))
	for _, record := range records {
		parsedID, err := uuid.Parse(record.ID)
		if err != nil {
			return nil, errors.Storage("decode message", err)
		}
		messages = append(messages, domain.Message{
			ID:        parsedID,
			Seq:       record.Seq,
			Author:    record.Author,
			Content:   record.Content,
			CreatedAt: record.CreatedAt.UTC(),
		})
	}
	return messages, nil
}
