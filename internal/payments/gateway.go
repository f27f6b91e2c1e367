package payments

import (
	"context"
	"math"
)

// Charge is the platform-side record of a captured customer payment.
type Charge struct {
	ID                   string
	Amount               int64 // pence
	Paid                 bool
	BalanceTransactionID string
}

// Account is a field owner's connected account at the processor.
type Account struct {
	ID             string
	ChargesEnabled bool
	PayoutsEnabled bool
}

// Payable reports whether the account can receive transfers and pay out.
func (a *Account) Payable() bool {
	return a != nil && a.ChargesEnabled && a.PayoutsEnabled
}

type Transfer struct {
	ID string
}

type Payout struct {
	ID string
}

type Refund struct {
	ID     string
	Amount int64
	Status string
}

type Reversal struct {
	ID string
}

// Gateway is the narrow payment-processor surface the engines consume. The
// production implementation is Stripe; tests substitute a mock.
type Gateway interface {
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
	// ChargeSettled reports whether the charge's funds have cleared the
	// processor-side settlement delay and are spendable.
	ChargeSettled(ctx context.Context, chargeID string) (bool, error)
	// AvailableBalance returns the platform's spendable balance in pence.
	// Callers must re-check immediately before each transfer; a prior payout
	// in the same sweep may have consumed it.
	AvailableBalance(ctx context.Context) (int64, error)
	CreateTransfer(ctx context.Context, amountPence int64, destinationAccount string, metadata map[string]string) (*Transfer, error)
	ReverseTransfer(ctx context.Context, transferID string, amountPence int64) (*Reversal, error)
	CreatePayout(ctx context.Context, amountPence int64, connectedAccount string) (*Payout, error)
	CreateRefund(ctx context.Context, chargeID string, amountPence int64, reason string) (*Refund, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// SetSubscriptionCancelAtPeriodEnd flags the processor-side subscription
	// to stop renewing once the current paid period ends, so no further
	// invoices are raised.
	SetSubscriptionCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error
	// PayOpenInvoice attempts to pay the newest open invoice of the
	// subscription; it is a no-op when none is open.
	PayOpenInvoice(ctx context.Context, subscriptionID string) error
}

// ToPence converts a decimal GBP amount to Stripe minor units.
func ToPence(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromPence converts Stripe minor units back to a decimal GBP amount.
func FromPence(pence int64) float64 {
	return float64(pence) / 100
}
