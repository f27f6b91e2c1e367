package commission

import (
	"context"
	"math"

	"github.com/vinender/fieldsy-backend-sub004/internal/settings"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

// Rate is the effective commission rate for a field owner.
type Rate struct {
	Rate        float64 `json:"rate"`
	IsCustom    bool    `json:"is_custom"`
	DefaultRate float64 `json:"default_rate"`
}

// Split is a gross booking amount divided between the platform and the field
// owner.
type Split struct {
	Gross            float64 `json:"gross"`
	Rate             float64 `json:"rate"`
	PlatformFee      float64 `json:"platform_fee"`
	FieldOwnerAmount float64 `json:"field_owner_amount"`
}

type Calculator interface {
	EffectiveRate(ctx context.Context, fieldOwnerID int) (*Rate, error)
	SplitAmount(ctx context.Context, gross float64, fieldOwnerID int) (*Split, error)
}

type calculator struct {
	users    user.Repository
	settings settings.Repository
}

func NewCalculator(users user.Repository, settingsRepo settings.Repository) Calculator {
	return &calculator{users: users, settings: settingsRepo}
}

func (c *calculator) EffectiveRate(ctx context.Context, fieldOwnerID int) (*Rate, error) {
	sys, err := c.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	owner, err := c.users.FindByID(ctx, fieldOwnerID)
	if err != nil {
		return nil, err
	}

	if owner.CommissionRate != nil {
		return &Rate{Rate: *owner.CommissionRate, IsCustom: true, DefaultRate: sys.DefaultCommissionRate}, nil
	}
	return &Rate{Rate: sys.DefaultCommissionRate, IsCustom: false, DefaultRate: sys.DefaultCommissionRate}, nil
}

func (c *calculator) SplitAmount(ctx context.Context, gross float64, fieldOwnerID int) (*Split, error) {
	rate, err := c.EffectiveRate(ctx, fieldOwnerID)
	if err != nil {
		return nil, err
	}
	return SplitWithRate(gross, rate.Rate), nil
}

// SplitWithRate divides gross by a known rate. Each multiplication is rounded
// to 2 decimal places immediately so repeated splits cannot accumulate float
// drift, and the owner amount is derived by subtraction so the two parts
// always sum back to the gross.
func SplitWithRate(gross, rate float64) *Split {
	fee := Round2(gross * rate / 100)
	ownerAmount := Round2(gross - fee)
	return &Split{
		Gross:            gross,
		Rate:             rate,
		PlatformFee:      fee,
		FieldOwnerAmount: ownerAmount,
	}
}

// Round2 rounds to currency minor-unit granularity (2 decimal places).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
