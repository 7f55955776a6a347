// Package domain defines the persistence models for balances, audit
// transactions, achievements, daily limits, and the activity records the
// stats snapshot is derived from. These types are mapped with GORM and form
// the core data layer of the XP backend.
package domain

import "time"

// Audit transaction statuses. A credit is inserted as pending, flipped to
// confirmed inside the same transaction, and may later become reversed.
// Failed rows are kept for forensics only and never count toward a balance.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusReversed  = "reversed"
	StatusFailed    = "failed"
)

// XP sources. Each value doubles as the key into the XP amount configuration.
const (
	SourceCoffeeMade       = "coffee-made"
	SourceCoffeeBrought    = "coffee-brought"
	SourceRatingGiven      = "rating-given"
	SourceFiveStarReceived = "five-star-received"
	SourceFourStarReceived = "four-star-received"
	SourceMessageSent      = "message-sent"
	SourceReactionGiven    = "reaction-given"
	SourceReactionReceived = "reaction-received"
	SourceAchievement      = "achievement"
	SourceDailyLogin       = "daily-login"
	SourceManual           = "manual"
	SourceCorrection       = "system-correction"
	SourceReversal         = "reversal"
)

// Achievement rarities, in ascending XP value.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
	RarityPlatinum  = "platinum"
)

// Daily limit categories.
const (
	LimitMessages  = "messages"
	LimitReactions = "reactions"
)

// User is the read-side identity row. Accounts are provisioned elsewhere;
// this service only reads the username and the signup date (for seniority
// achievements).
type User struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Username  string    `json:"username"   gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Balance is the denormalized 1:1 per-user XP row. TotalXP is authoritative
// only together with the audit log; Level and LevelXP are derived caches
// recomputed on every mutation and repairable from TotalXP alone.
type Balance struct {
	UserID    string    `json:"user_id"   gorm:"type:varchar(64);primaryKey"`
	TotalXP   int       `json:"total_xp"  gorm:"not null;default:0"`
	Level     int       `json:"level"     gorm:"not null;default:1"`
	LevelXP   int       `json:"level_xp"  gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Balance.
func (Balance) TableName() string { return "balances" }

// AuditTransaction records a single XP credit (or signed correction) with
// enough context to replay, reconcile, or reverse it later.
//
// SourceIdentifier is the dedupe key derived from the originating event
// (see SourceIdentifier in identifier.go). Uniqueness among pending and
// confirmed rows is enforced by a partial index created during migration,
// so concurrent retries of the same event collapse into one credit while a
// reversed credit does not block a legitimate re-earn.
type AuditTransaction struct {
	ID               string     `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID           string     `json:"user_id"           gorm:"type:varchar(64);not null;index:idx_audit_user,priority:1"`
	Username         string     `json:"username"          gorm:"type:varchar(128)"`
	Amount           int        `json:"amount"            gorm:"not null"`
	Reason           string     `json:"reason"            gorm:"type:varchar(255);not null"`
	Source           string     `json:"source"            gorm:"type:varchar(32);not null;index"`
	SourceID         string     `json:"source_id,omitempty" gorm:"type:varchar(64);index"`
	SourceIdentifier string     `json:"source_identifier" gorm:"type:varchar(255);not null;index"`
	Metadata         Metadata   `json:"metadata"          gorm:"embedded;embeddedPrefix:meta_"`
	BalanceBefore    int        `json:"balance_before"`
	BalanceAfter     int        `json:"balance_after"`
	Status           string     `json:"status"            gorm:"type:varchar(16);not null;index;check:status IN ('pending','confirmed','reversed','failed')"`
	CreatedAt        time.Time  `json:"created_at"        gorm:"index:idx_audit_user,priority:2"`
	ReversedAt       *time.Time `json:"reversed_at,omitempty"`
	ReversedReason   string     `json:"reversed_reason,omitempty" gorm:"type:varchar(255)"`
}

// TableName returns the database table name for AuditTransaction.
func (AuditTransaction) TableName() string { return "audit_transactions" }

// Achievement is an unlocked catalog entry. One row per (user, type),
// enforced by a unique index; rows are created once and never updated.
type Achievement struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_achievement_user_type,priority:1"`
	Type        string    `json:"type"        gorm:"type:varchar(64);not null;uniqueIndex:ux_achievement_user_type,priority:2"`
	Title       string    `json:"title"       gorm:"type:varchar(128);not null"`
	Description string    `json:"description" gorm:"type:varchar(255)"`
	Rarity      string    `json:"rarity"      gorm:"type:varchar(16);not null"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// TableName returns the database table name for Achievement.
func (Achievement) TableName() string { return "achievements" }

// DailyLimit is the per-user, per-category daily counter. Date holds the
// UTC calendar day as YYYY-MM-DD; a row whose Date is stale counts as zero
// and is reset in place on the next increment.
type DailyLimit struct {
	UserID    string    `json:"user_id"  gorm:"type:varchar(64);primaryKey"`
	Category  string    `json:"category" gorm:"type:varchar(32);primaryKey"`
	Date      string    `json:"date"     gorm:"type:char(10);not null"`
	Count     int       `json:"count"    gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for DailyLimit.
func (DailyLimit) TableName() string { return "daily_limits" }

// BalanceHistoryEntry is an append-only summary of a balance mutation, kept
// alongside the audit log so recent-activity views avoid scanning it.
type BalanceHistoryEntry struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(64);not null;index:idx_history_user,priority:1"`
	Amount    int       `json:"amount"   gorm:"not null"`
	Reason    string    `json:"reason"   gorm:"type:varchar(255)"`
	Source    string    `json:"source"   gorm:"type:varchar(32)"`
	AuditID   string    `json:"audit_id" gorm:"type:char(36);index"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_history_user,priority:2"`
}

// TableName returns the database table name for BalanceHistoryEntry.
func (BalanceHistoryEntry) TableName() string { return "balance_history" }

// Setting is a generic key/value row holding JSON payloads, currently used
// for the live XP amount configuration under the "xp-config" key.
type Setting struct {
	Key       string    `json:"key"   gorm:"type:varchar(64);primaryKey"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }
