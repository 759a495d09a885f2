package model

import (
	"context"
	"time"
)

// -------------------- ATTRIBUTE --------------------

// Attribute is the binary classifier users declare before matching.
type Attribute string

const (
	AttributeMale   Attribute = "male"
	AttributeFemale Attribute = "female"
)

// Valid reports whether a is one of the two declarable attributes.
func (a Attribute) Valid() bool {
	return a == AttributeMale || a == AttributeFemale
}

// Opposite returns the attribute a user with attribute a is matched against.
func (a Attribute) Opposite() Attribute {
	if a == AttributeMale {
		return AttributeFemale
	}
	return AttributeMale
}

// -------------------- WAITING POOL MODEL --------------------

// WaitingEntry is one user parked in the waiting pool.
type WaitingEntry struct {
	UserID     int64     `json:"user_id" db:"user_id"`
	Attribute  Attribute `json:"attribute" db:"attribute"`
	Alias      string    `json:"alias" db:"alias"`
	EnqueuedAt time.Time `json:"enqueued_at" db:"enqueued_at"`
}

// -------------------- SESSION MODEL --------------------

// Session is one side of an active pairing. For every row (U, P) the
// symmetric row (P, U) exists; both are created and destroyed together.
type Session struct {
	UserID        int64     `json:"user_id" db:"user_id"`
	PartnerID     int64     `json:"partner_id" db:"partner_id"`
	EstablishedAt time.Time `json:"established_at" db:"established_at"`
	LastActiveAt  time.Time `json:"last_active_at" db:"last_active_at"`
}

// ExpiredPair identifies one pairing reclaimed by the reaper.
type ExpiredPair struct {
	UserID    int64 `json:"user_id"`
	PartnerID int64 `json:"partner_id"`
}

// -------------------- MEDIA MODEL --------------------

// MediaKind classifies a relayed media payload.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaSticker   MediaKind = "sticker"
	MediaVideo     MediaKind = "video"
	MediaVoice     MediaKind = "voice"
	MediaDocument  MediaKind = "document"
	MediaAnimation MediaKind = "animation"
)

// MediaRef is an opaque reference to media held by the transport; the
// service never touches payload bytes, it only forwards the reference.
type MediaRef struct {
	Kind   MediaKind `json:"kind"`
	FileID string    `json:"file_id"`
}

// -------------------- EVENT MODEL --------------------

// Match lifecycle event types published to the event stream.
const (
	EventPairCreated     = "pair_created"
	EventSessionEnded    = "session_ended"
	EventSessionExpired  = "session_expired"
	EventPolicyViolation = "policy_violation"
)

// MatchEvent is the envelope written to the match events topic.
type MatchEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	PartnerID int64     `json:"partner_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// -------------------- HISTORY MODEL --------------------

// PairingRecord is one archived pairing in the durable match history.
type PairingRecord struct {
	ID            string    `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	PartnerID     int64     `json:"partner_id" db:"partner_id"`
	EstablishedAt time.Time `json:"established_at" db:"established_at"`
	EndedAt       time.Time `json:"ended_at,omitempty" db:"ended_at"`
	EndReason     string    `json:"end_reason,omitempty" db:"end_reason"`
}

// -------------------- STORE INTERFACES --------------------

// WaitingPool is the attribute-partitioned FIFO of users awaiting a match.
type WaitingPool interface {
	// Enqueue upserts an entry; a duplicate refreshes attribute, alias and
	// position instead of erroring.
	Enqueue(ctx context.Context, userID int64, attr Attribute, alias string) error
	// Restore re-inserts a claimed entry at its original queue position.
	// Used to roll back a claim whose pairing transaction failed.
	Restore(ctx context.Context, entry *WaitingEntry) error
	// ClaimOldest atomically removes and returns the oldest entry for attr.
	// Concurrent claims never block each other and never return the same
	// entry; ok is false when the pool for attr is empty.
	ClaimOldest(ctx context.Context, attr Attribute) (entry *WaitingEntry, ok bool, err error)
	// Withdraw removes the user's entry if present; absent is a no-op.
	Withdraw(ctx context.Context, userID int64) error
	// Len reports the number of entries waiting under attr.
	Len(ctx context.Context, attr Attribute) (int64, error)
}

// SessionStore holds active pairings as symmetric per-participant rows.
type SessionStore interface {
	IsInSession(ctx context.Context, userID int64) (bool, error)
	// Partner returns the user's current partner; ok is false when the user
	// has no session.
	Partner(ctx context.Context, userID int64) (partnerID int64, ok bool, err error)
	// CreatePair atomically writes rows (a,b) and (b,a). Both participants
	// are re-checked inside the same transaction: if either is already
	// paired with someone else the write aborts, no row is touched, and
	// the error wraps ErrAlreadyPaired.
	CreatePair(ctx context.Context, a, b int64) error
	// End atomically deletes both sides of the pairing rooted at userID,
	// returning the partner for notification; ended is false when the user
	// has no session.
	End(ctx context.Context, userID int64) (partnerID int64, ended bool, err error)
	// Touch refreshes last-active time for both sides of a pairing.
	Touch(ctx context.Context, a, b int64) error
	// ExpireOlderThan deletes sessions idle beyond threshold and returns the
	// reclaimed pairings. Run only by the reaper.
	ExpireOlderThan(ctx context.Context, threshold time.Duration) ([]ExpiredPair, error)
	// Count reports the number of session rows (two per pairing).
	Count(ctx context.Context) (int64, error)
}

// AttributeStore records each user's currently declared attribute.
type AttributeStore interface {
	Set(ctx context.Context, userID int64, attr Attribute) error
	// Get reports ok=false when the user has no declared attribute.
	Get(ctx context.Context, userID int64) (attr Attribute, ok bool, err error)
	Clear(ctx context.Context, userID int64) error
}

// EventPublisher emits match lifecycle events to the event stream.
// Publishing is best effort; failures must never fail the user action.
type EventPublisher interface {
	Publish(ctx context.Context, event MatchEvent) error
}

// HistoryArchive is the durable record of pairings for ops queries.
type HistoryArchive interface {
	RecordPairing(ctx context.Context, a, b int64, at time.Time) error
	RecordEnd(ctx context.Context, a, b int64, reason string, at time.Time) error
	RecentPairings(ctx context.Context, limit int) ([]*PairingRecord, error)
}
