// Package domain defines the core persistence models for the application.
// This file holds the credit metadata bag and the derivation of the stable
// dedupe key that makes XP credits idempotent.
package domain

import "strings"

// Metadata carries the known discriminators an XP credit may attach. It is
// embedded into the audit row (meta_ column prefix) so queries stay typed
// instead of digging through a JSON blob.
type Metadata struct {
	ReactionType    string `json:"reaction_type,omitempty"    gorm:"type:varchar(64)"`
	MessageID       string `json:"message_id,omitempty"       gorm:"type:char(36)"`
	ReactorID       string `json:"reactor_id,omitempty"       gorm:"type:varchar(64)"`
	AchievementType string `json:"achievement_type,omitempty" gorm:"type:varchar(64)"`
	Rarity          string `json:"rarity,omitempty"           gorm:"type:varchar(16)"`
	CoffeeType      string `json:"coffee_type,omitempty"      gorm:"type:varchar(64)"`
}

// IsZero reports whether no discriminator is set.
func (m Metadata) IsZero() bool { return m == Metadata{} }

// SourceIdentifier derives the dedupe key for a credit event. Retries of the
// same real-world event must produce the same key, so the derivation uses
// only stable inputs:
//
//	userID : source : sourceID [: reaction-<type>] [: reactor-<id>] [: unique-<uniqueID>]
//
// The reaction type keeps distinct emoji on the same message distinct, the
// reactor ID keeps the same emoji from different reactors distinct on the
// recipient side, and uniqueID lets callers without a natural sourceID
// (manual awards, daily login) supply their own disambiguator. Empty parts
// are dropped.
func SourceIdentifier(userID, source, sourceID string, md Metadata, uniqueID string) string {
	parts := []string{userID, source, sourceID}
	if md.ReactionType != "" {
		parts = append(parts, "reaction-"+md.ReactionType)
	}
	if md.ReactorID != "" {
		parts = append(parts, "reactor-"+md.ReactorID)
	}
	if uniqueID != "" {
		parts = append(parts, "unique-"+uniqueID)
	}

	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}
