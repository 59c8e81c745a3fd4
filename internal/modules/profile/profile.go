package profile

import "time"

// Profile is the public face of an account. Registration and OAuth
// provisioning create an empty one; everything but the display name and photo
// is filled in later.
type Profile struct {
	AccountID   string    `db:"account_id"`
	DisplayName string    `db:"display_name"`
	PhotoURL    *string   `db:"photo_url"`
	Bio         *string   `db:"bio"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Interest records that one account expressed interest in another. There is at
// most one per ordered pair.
type Interest struct {
	ID            string    `db:"id"`
	FromAccountID string    `db:"from_account_id"`
	ToAccountID   string    `db:"to_account_id"`
	CreatedAt     time.Time `db:"created_at"`
}
