package model

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID mints an id for a new live session, e.g. "sess_1760832000_k3v9q2m1xz0a".
// The runtime calls it when a run starts; storage only requires ids to pass ValidateID.
func NewSessionID() (string, error) {
	suffix, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return fmt.Sprintf("sess_%d_%s", time.Now().UTC().Unix(), suffix), nil
}
