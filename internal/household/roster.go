// Package household stores the members of each household, the known names the
// expense parser matches against.
package household

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/expense-intake/internal/extraction"
)

const householdsBucket = "households"

// ErrMemberNotFound is returned when deleting a member that is not on the roster
var ErrMemberNotFound = errors.New("member not found")

// Roster defines the interface for household member storage
type Roster interface {
	// SaveMember adds a member, or renames it if the ID is already present
	SaveMember(householdID string, member extraction.Member) error

	// ListMembers returns a household's members in the order they were added
	ListMembers(householdID string) ([]extraction.Member, error)

	// DeleteMember removes a member from a household
	DeleteMember(householdID, memberID string) error

	// Close closes the underlying store
	Close() error
}

// BoltRoster implements Roster using BoltDB. Each household is a nested bucket
// keyed by an insertion sequence so iteration order is the order of addition.
type BoltRoster struct {
	db *bbolt.DB
}

// NewBoltRoster opens or creates the roster database at path
func NewBoltRoster(path string) (*BoltRoster, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(householdsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltRoster{db: db}, nil
}

// SaveMember adds or renames a member
func (r *BoltRoster) SaveMember(householdID string, member extraction.Member) error {
	data, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("marshaling member: %w", err)
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket([]byte(householdsBucket)).CreateBucketIfNotExists([]byte(householdID))
		if err != nil {
			return fmt.Errorf("creating household bucket: %w", err)
		}

		key, err := findMemberKey(bucket, member.ID)
		if err != nil {
			return err
		}
		if key == nil {
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("allocating member key: %w", err)
			}
			key = sequenceKey(seq)
		}
		return bucket.Put(key, data)
	})
}

// ListMembers returns the members of a household. An unknown household has no
// members.
func (r *BoltRoster) ListMembers(householdID string) ([]extraction.Member, error) {
	members := make([]extraction.Member, 0)
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(householdsBucket)).Bucket([]byte(householdID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var member extraction.Member
			if err := json.Unmarshal(v, &member); err != nil {
				return fmt.Errorf("unmarshaling member: %w", err)
			}
			members = append(members, member)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// DeleteMember removes a member, returning ErrMemberNotFound if it is absent
func (r *BoltRoster) DeleteMember(householdID, memberID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(householdsBucket)).Bucket([]byte(householdID))
		if bucket == nil {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
		}
		key, err := findMemberKey(bucket, memberID)
		if err != nil {
			return err
		}
		if key == nil {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
		}
		return bucket.Delete(key)
	})
}

// Close closes the database connection
func (r *BoltRoster) Close() error {
	return r.db.Close()
}

// findMemberKey scans a household for a member ID. Households are small
// enough that an index bucket is not worth keeping in sync.
func findMemberKey(bucket *bbolt.Bucket, memberID string) ([]byte, error) {
	var found []byte
	err := bucket.ForEach(func(k, v []byte) error {
		var member extraction.Member
		if err := json.Unmarshal(v, &member); err != nil {
			return fmt.Errorf("unmarshaling member: %w", err)
		}
		if member.ID == memberID {
			found = append([]byte(nil), k...)
		}
		return nil
	})
	return found, err
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
