package models

// TransferVersion is the only envelope version produced so far.
const TransferVersion = 1

// TransferEnvelope is the payload uploaded to the remote object store.
// Timestamp holds the record's creation time sealed under the metadata key,
// so it cannot be read from object listings or contents by the provider.
type TransferEnvelope struct {
	Version          int    `json:"version"`
	Timestamp        string `json:"timestamp"`
	EncryptedContent string `json:"encrypted_content"`
}
