package member_test

import (
	"errors"
	"testing"
	"time"

	"gymdesk/internal/domain/member"
)

func validMember() member.Member {
	return member.Member{
		ID:         "123",
		RollNumber: "GYM-0001",
		Name:       "Aroha Ngata",
		Email:      "aroha@example.com",
		Tier:       member.TierStandard,
		JoinDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Fee:        5000,
		PaidAmount: 2000,
		Remaining:  3000,
	}
}

// TestMemberValidation tests validation of Member.
func TestMemberValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *member.Member)
		wantErr error
	}{
		{name: "valid member", mutate: func(m *member.Member) {}},
		{name: "email is optional", mutate: func(m *member.Member) { m.Email = "" }},
		{name: "empty name", mutate: func(m *member.Member) { m.Name = "  " }, wantErr: errAny},
		{name: "invalid email", mutate: func(m *member.Member) { m.Email = "invalid-email" }, wantErr: errAny},
		{name: "unknown tier", mutate: func(m *member.Member) { m.Tier = "gold" }, wantErr: member.ErrInvalidTier},
		{name: "missing expiry", mutate: func(m *member.Member) { m.ExpiryDate = time.Time{} }, wantErr: errAny},
		{name: "negative fee", mutate: func(m *member.Member) { m.Fee = -1; m.PaidAmount = 0; m.Remaining = -1 }, wantErr: member.ErrNegativeAmount},
		{name: "balance mismatch", mutate: func(m *member.Member) { m.Remaining = 2999 }, wantErr: member.ErrBalanceMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMember()
			tt.mutate(&m)
			err := m.Validate()
			switch {
			case tt.wantErr == nil && err != nil:
				t.Errorf("Validate() unexpected error: %v", err)
			case tt.wantErr == errAny && err == nil:
				t.Error("Validate() expected an error")
			case tt.wantErr != nil && tt.wantErr != errAny && !errors.Is(err, tt.wantErr):
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

var errAny = errors.New("any error")

func TestTierFee(t *testing.T) {
	fee, err := member.TierFee(member.TierPremium)
	if err != nil || fee != 8000 {
		t.Errorf("TierFee(premium) = %d, %v", fee, err)
	}
	if _, err := member.TierFee("platinum"); !errors.Is(err, member.ErrInvalidTier) {
		t.Errorf("TierFee(platinum) error = %v, want ErrInvalidTier", err)
	}
}

func TestBillingPatch_CarriesAllAmounts(t *testing.T) {
	m := validMember()
	p := member.BillingPatch(m)
	if p.IsEmpty() {
		t.Fatal("billing patch should not be empty")
	}
	if *p.Fee != 5000 || *p.PaidAmount != 2000 || *p.Remaining != 3000 {
		t.Errorf("patch amounts = %d/%d/%d", *p.Fee, *p.PaidAmount, *p.Remaining)
	}
	if p.Name != nil || p.Email != nil {
		t.Error("billing patch must not touch identity fields")
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	if !(member.Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	name := "x"
	if (member.Patch{Name: &name}).IsEmpty() {
		t.Error("patch with name should not be empty")
	}
}
