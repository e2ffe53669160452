package member

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 100
	MaxPhoneLength = 32
)

// Membership tiers
const (
	TierBasic    = "basic"
	TierStandard = "standard"
	TierPremium  = "premium"
)

// Sync states
const (
	SyncStateSynced      = "synced"
	SyncStatePendingSync = "pending_sync"
)

// DefaultFees maps each tier to its list price in minor currency units.
var DefaultFees = map[string]int64{
	TierBasic:    3000,
	TierStandard: 5000,
	TierPremium:  8000,
}

// Domain errors
var (
	ErrInvalidTier     = errors.New("tier must be 'basic', 'standard', or 'premium'")
	ErrBalanceMismatch = errors.New("remaining must equal fee minus paid amount")
	ErrNegativeAmount  = errors.New("fee, paid amount and remaining cannot be negative")
)

// Member holds identity, billing and lifecycle facts for one gym member.
// Lifecycle and payment status are never stored here; see package status.
type Member struct {
	ID          string
	RollNumber  string
	Name        string
	Phone       string
	Email       string
	Tier        string
	JoinDate    time.Time
	CurrentDate time.Time // last visit or renewal reference date
	ExpiryDate  time.Time
	Fee         int64
	PaidAmount  int64
	Remaining   int64
	SyncState   string
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Phone       *string
	Email       *string
	Tier        *string
	CurrentDate *time.Time
	ExpiryDate  *time.Time
	Fee         *int64
	PaidAmount  *int64
	Remaining   *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.Tier == nil &&
		p.CurrentDate == nil && p.ExpiryDate == nil &&
		p.Fee == nil && p.PaidAmount == nil && p.Remaining == nil
}

// BillingPatch returns a Patch carrying the billing and term fields of m.
// INVARIANT: the three amount fields are always written together
func BillingPatch(m Member) Patch {
	return Patch{
		Tier:        &m.Tier,
		CurrentDate: &m.CurrentDate,
		ExpiryDate:  &m.ExpiryDate,
		Fee:         &m.Fee,
		PaidAmount:  &m.PaidAmount,
		Remaining:   &m.Remaining,
	}
}

// IsValidTier reports whether tier is one of the known membership tiers.
func IsValidTier(tier string) bool {
	_, ok := DefaultFees[tier]
	return ok
}

// TierFee returns the default fee for tier.
// PRE: tier is non-empty
// POST: Returns the list price or ErrInvalidTier
func TierFee(tier string) (int64, error) {
	fee, ok := DefaultFees[tier]
	if !ok {
		return 0, ErrInvalidTier
	}
	return fee, nil
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Remaining == Fee - PaidAmount and all amounts are non-negative
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("member name cannot be empty")
	}
	if len(m.Name) > MaxNameLength {
		return errors.New("member name cannot exceed 100 characters")
	}
	if len(m.Phone) > MaxPhoneLength {
		return errors.New("member phone cannot exceed 32 characters")
	}
	if m.Email != "" && !strings.Contains(m.Email, "@") {
		return errors.New("member email must be valid")
	}
	if !IsValidTier(m.Tier) {
		return ErrInvalidTier
	}
	if m.JoinDate.IsZero() || m.ExpiryDate.IsZero() {
		return errors.New("join and expiry dates must be set")
	}
	if m.Fee < 0 || m.PaidAmount < 0 || m.Remaining < 0 {
		return ErrNegativeAmount
	}
	if m.Remaining != m.Fee-m.PaidAmount {
		return ErrBalanceMismatch
	}
	return nil
}

// IsPendingSync returns true if the member was captured while the record
// store was unreachable and has not been replayed yet.
// INVARIANT: SyncState field is not mutated
func (m *Member) IsPendingSync() bool {
	return m.SyncState == SyncStatePendingSync
}
