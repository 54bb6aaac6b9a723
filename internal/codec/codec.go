// Package codec seals journal entries into authenticated ciphertext records
// and wraps records into transfer envelopes for remote storage.
//
// Blob layout: base64(nonce || ciphertext || tag), AES-256-GCM with a fresh
// 96-bit nonce per call. The record id and journal id are bound to the blob as
// additional data, so a blob copied onto another row fails to open.
package codec

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/dmitrijs2005/xjournal/internal/cryptox"
	"github.com/dmitrijs2005/xjournal/internal/keyvault"
	"github.com/dmitrijs2005/xjournal/internal/models"
)

// Key aliases requested from the vault.
const (
	EntryKeyAlias    = "entry-key"
	MetadataKeyAlias = "metadata-key"
)

var (
	// ErrIntegrity means the authentication tag did not verify or the sealed
	// identity does not match the record it was read from.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrMalformedData means the blob could not be decoded or deserialized.
	ErrMalformedData = errors.New("malformed data")
	// ErrInvalidText means a title or content is not valid UTF-8 and would
	// not survive serialization unchanged.
	ErrInvalidText = errors.New("text is not valid UTF-8")
	// ErrUnsupportedVersion is returned for transfer envelopes of unknown versions.
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
)

// payload is the canonical serialized form of an entry's sealed fields.
type payload struct {
	ID           string `json:"id"`
	JournalID    string `json:"journal_id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"`
	LastModified int64  `json:"last_modified"`
}

// Codec converts between JournalEntry and EncryptedRecord.
// It holds key handles only and is safe for concurrent use.
type Codec struct {
	entryKey    *keyvault.Key
	metadataKey *keyvault.Key
}

// New fetches both keys from the vault once.
func New(ctx context.Context, vault keyvault.Vault) (*Codec, error) {
	ek, err := vault.GetOrCreateKey(ctx, EntryKeyAlias)
	if err != nil {
		return nil, fmt.Errorf("entry key: %w", err)
	}
	mk, err := vault.GetOrCreateKey(ctx, MetadataKeyAlias)
	if err != nil {
		return nil, fmt.Errorf("metadata key: %w", err)
	}
	return &Codec{entryKey: ek, metadataKey: mk}, nil
}

func additionalData(id, journalID string) []byte {
	return []byte(id + "\x00" + journalID)
}

// Seal encrypts the confidential fields of e. Status fields are copied
// unencrypted from e.
func (c *Codec) Seal(e models.JournalEntry) (models.EncryptedRecord, error) {
	if !utf8.ValidString(e.Title) || !utf8.ValidString(e.Content) {
		return models.EncryptedRecord{}, fmt.Errorf("%w: entry %s", ErrInvalidText, e.ID)
	}

	plaintext, err := json.Marshal(payload{
		ID:           e.ID,
		JournalID:    e.JournalID,
		Title:        e.Title,
		Content:      e.Content,
		CreatedAt:    e.CreatedAt,
		LastModified: e.LastModified,
	})
	if err != nil {
		return models.EncryptedRecord{}, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	defer cryptox.Wipe(plaintext)

	blob, err := c.entryKey.Seal(plaintext, additionalData(e.ID, e.JournalID))
	if err != nil {
		return models.EncryptedRecord{}, fmt.Errorf("seal entry: %w", err)
	}

	return models.EncryptedRecord{
		ID:             e.ID,
		JournalID:      e.JournalID,
		CiphertextBlob: base64.StdEncoding.EncodeToString(blob),
		CreatedAt:      e.CreatedAt,
		LastModified:   e.LastModified,
		SyncStatus:     e.SyncStatus,
		LastSyncError:  e.LastSyncError,
	}, nil
}

// Open decrypts r. It never returns a partially filled entry on failure.
func (c *Codec) Open(r models.EncryptedRecord) (models.JournalEntry, error) {
	blob, err := base64.StdEncoding.DecodeString(r.CiphertextBlob)
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("%w: record %s: %v", ErrMalformedData, r.ID, err)
	}

	plaintext, err := c.entryKey.Open(blob, additionalData(r.ID, r.JournalID))
	switch {
	case errors.Is(err, cryptox.ErrShortCiphertext):
		return models.JournalEntry{}, fmt.Errorf("%w: record %s: %v", ErrMalformedData, r.ID, err)
	case err != nil:
		return models.JournalEntry{}, fmt.Errorf("%w: record %s", ErrIntegrity, r.ID)
	}
	defer cryptox.Wipe(plaintext)

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return models.JournalEntry{}, fmt.Errorf("%w: record %s: %v", ErrMalformedData, r.ID, err)
	}
	if p.ID != r.ID || p.JournalID != r.JournalID || p.CreatedAt != r.CreatedAt {
		return models.JournalEntry{}, fmt.Errorf("%w: record %s: sealed identity mismatch", ErrIntegrity, r.ID)
	}

	return models.JournalEntry{
		ID:            p.ID,
		JournalID:     p.JournalID,
		Title:         p.Title,
		Content:       p.Content,
		CreatedAt:     p.CreatedAt,
		LastModified:  p.LastModified,
		SyncStatus:    r.SyncStatus,
		LastSyncError: r.LastSyncError,
	}, nil
}

// Verify reports whether r opens and reproduces the id and creation time of e.
// It is meant for self-tests, not for the read path.
func (c *Codec) Verify(e models.JournalEntry, r models.EncryptedRecord) bool {
	got, err := c.Open(r)
	if err != nil {
		return false
	}
	return got.ID == e.ID && got.CreatedAt == e.CreatedAt
}

// SealForTransfer wraps the existing blob of r together with its creation
// time sealed under the metadata key.
func (c *Codec) SealForTransfer(r models.EncryptedRecord) (models.TransferEnvelope, error) {
	if _, err := base64.StdEncoding.DecodeString(r.CiphertextBlob); err != nil {
		return models.TransferEnvelope{}, fmt.Errorf("%w: record %s: %v", ErrMalformedData, r.ID, err)
	}
	ts, err := c.metadataKey.Seal([]byte(strconv.FormatInt(r.CreatedAt, 10)), nil)
	if err != nil {
		return models.TransferEnvelope{}, fmt.Errorf("seal timestamp: %w", err)
	}
	return models.TransferEnvelope{
		Version:          models.TransferVersion,
		Timestamp:        base64.StdEncoding.EncodeToString(ts),
		EncryptedContent: r.CiphertextBlob,
	}, nil
}

// OpenTransfer validates env and recovers the sealed creation time.
func (c *Codec) OpenTransfer(env models.TransferEnvelope) (int64, error) {
	if env.Version != models.TransferVersion {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	blob, err := base64.StdEncoding.DecodeString(env.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp: %v", ErrMalformedData, err)
	}
	pt, err := c.metadataKey.Open(blob, nil)
	switch {
	case errors.Is(err, cryptox.ErrShortCiphertext):
		return 0, fmt.Errorf("%w: timestamp: %v", ErrMalformedData, err)
	case err != nil:
		return 0, fmt.Errorf("%w: timestamp", ErrIntegrity)
	}
	ts, err := strconv.ParseInt(string(pt), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp: %v", ErrMalformedData, err)
	}
	return ts, nil
}

// MarshalEnvelope encodes env as the JSON bytes uploaded to the remote store.
func MarshalEnvelope(env models.TransferEnvelope) ([]byte, error) {
	return json.Marshal(env)
}

// UnmarshalEnvelope decodes an uploaded payload.
func UnmarshalEnvelope(b []byte) (models.TransferEnvelope, error) {
	var env models.TransferEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("%w: envelope: %v", ErrMalformedData, err)
	}
	return env, nil
}

// FailureKind classifies a codec error for presentation.
func FailureKind(err error) models.FailureKind {
	switch {
	case err == nil:
		return models.FailureNone
	case errors.Is(err, ErrIntegrity):
		return models.FailureIntegrity
	case errors.Is(err, ErrMalformedData):
		return models.FailureMalformed
	default:
		return models.FailureEncode
	}
}
