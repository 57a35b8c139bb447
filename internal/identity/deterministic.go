package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/domain"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must prefix keys by entity type to prevent cross-entity collisions.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// EntryUUID returns the id of one locale row of a content item. Seeding the
// same item twice yields the same ids.
func EntryUUID(kind domain.Kind, locale, slug string) uuid.UUID {
	return UUID("corpsite:entry:" + string(kind) + ":" + strings.ToLower(strings.TrimSpace(locale)) + ":" + strings.TrimSpace(slug))
}

// Generator issues ids for new records.
type Generator func(kind domain.Kind, locale, slug string) uuid.UUID

// Random issues random ids.
func Random(domain.Kind, string, string) uuid.UUID {
	return uuid.New()
}

// Deterministic issues EntryUUID ids.
func Deterministic(kind domain.Kind, locale, slug string) uuid.UUID {
	return EntryUUID(kind, locale, slug)
}
