// Package identity defines the enrolled identity record shared by the
// store, matcher, and web layers.
package identity

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Identity is a single enrolled user with their face embedding.
// The embedding is biometric data and must never leave the process
// in responses, logs, or error payloads.
type Identity struct {
	ID          uuid.UUID
	DisplayName string
	Contact     string // normalized, unique across the store
	Embedding   []float32
	PhotoRef    string // opaque reference to the source photo, may be empty
	CreatedAt   time.Time
}

// identityJSON is the wire representation. It deliberately has no
// embedding field.
type identityJSON struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact"`
	PhotoRef    string `json:"photo_ref,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// MarshalJSON implements json.Marshaler and excludes the embedding.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityJSON{
		ID:          i.ID.String(),
		DisplayName: i.DisplayName,
		Contact:     i.Contact,
		PhotoRef:    i.PhotoRef,
		CreatedAt:   i.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// NormalizeContact canonicalizes a contact handle for duplicate detection:
// trimmed, lowercased, diacritics removed. "Jan.Novák@x.com" and
// "jan.novak@x.com " refer to the same account.
func NormalizeContact(contact string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(contact))
	if err != nil {
		folded = strings.TrimSpace(contact)
	}
	return strings.ToLower(folded)
}
