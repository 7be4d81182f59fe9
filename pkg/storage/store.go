package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/facegate/facegate/pkg/embedding"
	"github.com/facegate/facegate/pkg/logging"
)

const (
	// KeySize is the size of the per-profile encryption key.
	KeySize = 32
	// NonceSize is the secretbox nonce size.
	NonceSize = 24
	// SchemaVersion is the current persisted record layout version.
	SchemaVersion = 1
)

// ErrCorrupted is returned when a stored blob fails authentication.
var ErrCorrupted = errors.New("stored embedding failed integrity check")

// ErrInvalidData is returned when a stored blob has the wrong shape.
var ErrInvalidData = errors.New("invalid stored embedding data")

// Profile is the persisted record for one enrolled user. Blob never
// holds plaintext: it is key‖nonce‖ciphertext with the secretbox tag
// inside the ciphertext.
type Profile struct {
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	SamplesCount  int       `json:"samples_count"`
	SchemaVersion int       `json:"schema_version"`
	Blob          []byte    `json:"blob"`
}

// EmbeddingStore persists master embeddings under authenticated
// encryption, one profile per user ID.
type EmbeddingStore struct {
	store     SecureStore
	namespace string
}

// NewEmbeddingStore wraps a secure-storage capability, scoping all
// keys to the given namespace.
func NewEmbeddingStore(store SecureStore, namespace string) *EmbeddingStore {
	return &EmbeddingStore{store: store, namespace: namespace}
}

func (s *EmbeddingStore) key(userID string) string {
	return s.namespace + "/" + userID
}

// Save encrypts the embedding under a freshly generated key and
// persists the profile keyed by userID. Saving over an existing
// profile increments SamplesCount and preserves DisplayName and
// CreatedAt.
func (s *EmbeddingStore) Save(userID, displayName string, vec embedding.Vector) (*Profile, error) {
	if len(vec) == 0 {
		return nil, embedding.ErrEmptyEmbeddings
	}

	blob, err := sealVector(vec)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &Profile{
		UserID:        userID,
		DisplayName:   displayName,
		CreatedAt:     now,
		UpdatedAt:     now,
		SamplesCount:  1,
		SchemaVersion: SchemaVersion,
		Blob:          blob,
	}

	if existing, err := s.GetProfile(userID); err == nil {
		profile.DisplayName = existing.DisplayName
		profile.CreatedAt = existing.CreatedAt
		profile.SamplesCount = existing.SamplesCount + 1
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.store.Put(s.key(userID), data); err != nil {
		return nil, err
	}

	logging.Debugf("Saved profile %s (samples=%d, dim=%d)", userID, profile.SamplesCount, len(vec))
	return profile, nil
}

// Load fetches and decrypts the stored master embedding for userID.
func (s *EmbeddingStore) Load(userID string) (embedding.Vector, error) {
	profile, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	return openVector(profile.Blob)
}

// GetProfile returns the persisted record without decrypting the blob.
func (s *EmbeddingStore) GetProfile(userID string) (*Profile, error) {
	data, err := s.store.Get(s.key(userID))
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &profile, nil
}

// VerifyIntegrity attempts a decrypt-only pass over the stored blob
// and reports its health. The plaintext never leaves this call.
func (s *EmbeddingStore) VerifyIntegrity(userID string) (bool, error) {
	profile, err := s.GetProfile(userID)
	if err != nil {
		return false, err
	}

	if _, err := openVector(profile.Blob); err != nil {
		logging.Warnf("Integrity check failed for %s: %v", userID, err)
		return false, nil
	}
	return true, nil
}

// Exists reports whether a profile is stored for userID.
func (s *EmbeddingStore) Exists(userID string) bool {
	_, err := s.store.Get(s.key(userID))
	return err == nil
}

// Delete removes the profile for userID.
func (s *EmbeddingStore) Delete(userID string) error {
	if err := s.store.Delete(s.key(userID)); err != nil {
		return err
	}
	logging.Infof("Deleted profile for %s", userID)
	return nil
}

// ListUsers returns the IDs of all enrolled users in this namespace.
func (s *EmbeddingStore) ListUsers() ([]string, error) {
	keys, err := s.store.ListKeys(s.namespace + "/")
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, strings.TrimPrefix(k, s.namespace+"/"))
	}
	return users, nil
}

// sealVector serializes and encrypts a vector under a fresh random
// key, returning key‖nonce‖ciphertext.
func sealVector(vec embedding.Vector) ([]byte, error) {
	var key [KeySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	plaintext := encodeVector(vec)
	blob := make([]byte, 0, KeySize+NonceSize+len(plaintext)+secretbox.Overhead)
	blob = append(blob, key[:]...)
	blob = append(blob, nonce[:]...)
	blob = secretbox.Seal(blob, plaintext, &nonce, &key)
	return blob, nil
}

// openVector splits a blob back into key and ciphertext, decrypts,
// and deserializes the vector.
func openVector(blob []byte) (embedding.Vector, error) {
	if len(blob) < KeySize+NonceSize+secretbox.Overhead {
		return nil, ErrInvalidData
	}

	var key [KeySize]byte
	copy(key[:], blob[:KeySize])
	var nonce [NonceSize]byte
	copy(nonce[:], blob[KeySize:KeySize+NonceSize])

	plaintext, ok := secretbox.Open(nil, blob[KeySize+NonceSize:], &nonce, &key)
	if !ok {
		return nil, ErrCorrupted
	}

	return decodeVector(plaintext)
}

// encodeVector serializes a vector as little-endian IEEE-754 bits so
// a save/load round-trip is bitwise exact.
func encodeVector(vec embedding.Vector) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) (embedding.Vector, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, ErrInvalidData
	}
	vec := make(embedding.Vector, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
