package store

import (
	"context"

	"github.com/shuaiyuancn/2026-better-booking/internal/db"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
)

type Accounts struct{ db *db.DB }

func NewAccounts(d *db.DB) *Accounts { return &Accounts{db: d} }

func (r *Accounts) Get(ctx context.Context, id int64) (domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRow(ctx, `SELECT id,name,email,password_encrypted FROM user_account WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &a.Email, &a.PasswordEncrypted)
	if err != nil {
		return domain.Account{}, db.Wrap(err)
	}
	return a, nil
}

// Create stores an account. PasswordEncrypted must already be a vault token.
func (r *Accounts) Create(ctx context.Context, a domain.Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO user_account(name,email,password_encrypted)
VALUES ($1,$2,$3)
RETURNING id`, a.Name, a.Email, a.PasswordEncrypted).Scan(&id)
	return id, db.Wrap(err)
}

type Payments struct{ db *db.DB }

func NewPayments(d *db.DB) *Payments { return &Payments{db: d} }

func (r *Payments) Get(ctx context.Context, id int64) (domain.PaymentProfile, error) {
	var p domain.PaymentProfile
	err := r.db.QueryRow(ctx, `
SELECT id,user_account_id,alias,cardholder_name,card_number_encrypted,expiry_month,expiry_year,cvv_encrypted,address_line_1,city,postcode
FROM payment_profile WHERE id=$1`, id).
		Scan(&p.ID, &p.AccountID, &p.Alias, &p.CardholderName, &p.CardNumberEncrypted, &p.ExpiryMonth, &p.ExpiryYear,
			&p.CVVEncrypted, &p.AddressLine1, &p.City, &p.Postcode)
	if err != nil {
		return domain.PaymentProfile{}, db.Wrap(err)
	}
	return p, nil
}

func (r *Payments) Create(ctx context.Context, p domain.PaymentProfile) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO payment_profile(user_account_id,alias,cardholder_name,card_number_encrypted,expiry_month,expiry_year,cvv_encrypted,address_line_1,city,postcode)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`,
		p.AccountID, p.Alias, p.CardholderName, p.CardNumberEncrypted, p.ExpiryMonth, p.ExpiryYear,
		p.CVVEncrypted, p.AddressLine1, p.City, p.Postcode,
	).Scan(&id)
	return id, db.Wrap(err)
}
