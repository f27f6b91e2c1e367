package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{sc: sc, webhookSecret: webhookSecret}
}

func (g *StripeGateway) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx
	ch, err := g.sc.Charges.Get(chargeID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get charge %s: %w", chargeID, err)
	}

	out := &Charge{
		ID:     ch.ID,
		Amount: ch.Amount,
		Paid:   ch.Paid,
	}
	if ch.BalanceTransaction != nil {
		out.BalanceTransactionID = ch.BalanceTransaction.ID
	}
	return out, nil
}

func (g *StripeGateway) ChargeSettled(ctx context.Context, chargeID string) (bool, error) {
	ch, err := g.GetCharge(ctx, chargeID)
	if err != nil {
		return false, err
	}
	if ch.BalanceTransactionID == "" {
		return false, nil
	}

	params := &stripe.BalanceTransactionParams{}
	params.Context = ctx
	bt, err := g.sc.BalanceTransactions.Get(ch.BalanceTransactionID, params)
	if err != nil {
		return false, fmt.Errorf("stripe get balance transaction: %w", err)
	}
	return bt.Status == stripe.BalanceTransactionStatusAvailable, nil
}

func (g *StripeGateway) AvailableBalance(ctx context.Context) (int64, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	bal, err := g.sc.Balance.Get(params)
	if err != nil {
		return 0, fmt.Errorf("stripe get balance: %w", err)
	}

	for _, amount := range bal.Available {
		if amount.Currency == stripe.CurrencyGBP {
			return amount.Amount, nil
		}
	}
	return 0, nil
}

func (g *StripeGateway) CreateTransfer(ctx context.Context, amountPence int64, destinationAccount string, metadata map[string]string) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountPence),
		Currency:    stripe.String(string(stripe.CurrencyGBP)),
		Destination: stripe.String(destinationAccount),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	tr, err := g.sc.Transfers.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create transfer: %w", err)
	}
	return &Transfer{ID: tr.ID}, nil
}

func (g *StripeGateway) ReverseTransfer(ctx context.Context, transferID string, amountPence int64) (*Reversal, error) {
	params := &stripe.TransferReversalParams{
		ID:     stripe.String(transferID),
		Amount: stripe.Int64(amountPence),
	}
	params.Context = ctx

	rev, err := g.sc.TransferReversals.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe reverse transfer %s: %w", transferID, err)
	}
	return &Reversal{ID: rev.ID}, nil
}

func (g *StripeGateway) CreatePayout(ctx context.Context, amountPence int64, connectedAccount string) (*Payout, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(amountPence),
		Currency: stripe.String(string(stripe.CurrencyGBP)),
	}
	params.Context = ctx
	params.SetStripeAccount(connectedAccount)

	po, err := g.sc.Payouts.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payout: %w", err)
	}
	return &Payout{ID: po.ID}, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, chargeID string, amountPence int64, reason string) (*Refund, error) {
	params := &stripe.RefundParams{
		Charge: stripe.String(chargeID),
		Amount: stripe.Int64(amountPence),
	}
	params.Context = ctx
	params.AddMetadata("reason", reason)

	ref, err := g.sc.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create refund: %w", err)
	}
	return &Refund{ID: ref.ID, Amount: ref.Amount, Status: string(ref.Status)}, nil
}

func (g *StripeGateway) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := g.sc.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get account %s: %w", accountID, err)
	}
	return &Account{
		ID:             acct.ID,
		ChargesEnabled: acct.ChargesEnabled,
		PayoutsEnabled: acct.PayoutsEnabled,
	}, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := g.sc.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return fmt.Errorf("stripe cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (g *StripeGateway) SetSubscriptionCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx
	_, err := g.sc.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return fmt.Errorf("stripe update subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (g *StripeGateway) PayOpenInvoice(ctx context.Context, subscriptionID string) error {
	listParams := &stripe.InvoiceListParams{
		Subscription: stripe.String(subscriptionID),
		Status:       stripe.String(string(stripe.InvoiceStatusOpen)),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := g.sc.Invoices.List(listParams)
	for iter.Next() {
		inv := iter.Invoice()
		payParams := &stripe.InvoicePayParams{}
		payParams.Context = ctx
		if _, err := g.sc.Invoices.Pay(inv.ID, payParams); err != nil {
			return fmt.Errorf("stripe pay invoice %s: %w", inv.ID, err)
		}
		logger.Info("open invoice paid", "subscription", subscriptionID, "invoice", inv.ID)
		return nil
	}
	return iter.Err()
}

// VerifyWebhook checks the Stripe signature and returns the parsed event.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
}
