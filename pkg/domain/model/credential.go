package model

import "time"

// EncryptedCredential is the at-rest form of a user's analysis service
// API key. One record per owner; the plaintext exists only transiently
// inside a pipeline run.
type EncryptedCredential struct {
	OwnerID    int64
	Ciphertext []byte
	Nonce      []byte
	UpdatedAt  time.Time
}
