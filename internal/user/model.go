package user

import "time"

type Role string

const (
	RoleDogOwner   Role = "DOG_OWNER"
	RoleFieldOwner Role = "FIELD_OWNER"
	RoleAdmin      Role = "ADMIN"
)

type User struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Field-owner specifics. CommissionRate overrides the system default when
	// set; StripeAccountID is the connected account payouts are sent to.
	CommissionRate  *float64 `db:"commission_rate" json:"commission_rate,omitempty"`
	StripeAccountID *string  `db:"stripe_account_id" json:"stripe_account_id,omitempty"`
}
