package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shuaiyuancn/2026-better-booking/internal/config"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
	"github.com/shuaiyuancn/2026-better-booking/internal/vault"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage site accounts and their payment cards",
	}
	cmd.AddCommand(newAccountAddCmd())
	cmd.AddCommand(newAccountAddCardCmd())
	return cmd
}

func newAccountAddCmd() *cobra.Command {
	var name, email, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a site account; the password is stored encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			v, err := vault.New(cfg.FernetKey)
			if err != nil {
				return err
			}
			enc, err := v.Encrypt(password)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			d, _, err := openDB(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer d.Close()

			id, err := store.NewAccounts(d).Create(ctx, domain.Account{Name: name, Email: email, PasswordEncrypted: enc})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created account id=%d email=%q\n", id, email)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "name used for billing details")
	c.Flags().StringVar(&email, "email", "", "site login (email or customer id)")
	c.Flags().StringVar(&password, "password", "", "site password")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}

// cardFlags holds the add-card flags before encryption.
type cardFlags struct {
	accountID  int64
	alias      string
	cardholder string
	number     string
	expiry     string
	cvv        string
	address    string
	city       string
	postcode   string
}

func (s cardFlags) profile(v vault.Vault) (domain.PaymentProfile, error) {
	month, year, err := parseExpiry(s.expiry)
	if err != nil {
		return domain.PaymentProfile{}, err
	}
	number := strings.ReplaceAll(s.number, " ", "")
	if number == "" || s.cvv == "" {
		return domain.PaymentProfile{}, fmt.Errorf("card number and cvv are required")
	}
	numberEnc, err := v.Encrypt(number)
	if err != nil {
		return domain.PaymentProfile{}, err
	}
	cvvEnc, err := v.Encrypt(s.cvv)
	if err != nil {
		return domain.PaymentProfile{}, err
	}
	return domain.PaymentProfile{
		AccountID:           s.accountID,
		Alias:               s.alias,
		CardholderName:      s.cardholder,
		CardNumberEncrypted: numberEnc,
		ExpiryMonth:         month,
		ExpiryYear:          year,
		CVVEncrypted:        cvvEnc,
		AddressLine1:        s.address,
		City:                s.city,
		Postcode:            s.postcode,
	}, nil
}

// parseExpiry accepts MM/YY or MMYY.
func parseExpiry(s string) (month, year string, err error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "")
	if len(s) != 4 {
		return "", "", fmt.Errorf("invalid --expiry %q (want MM/YY)", s)
	}
	month, year = s[:2], s[2:]
	if strings.Trim(s, "0123456789") != "" || month < "01" || month > "12" {
		return "", "", fmt.Errorf("invalid --expiry %q (want MM/YY)", s)
	}
	return month, year, nil
}

func newAccountAddCardCmd() *cobra.Command {
	var f cardFlags

	c := &cobra.Command{
		Use:   "add-card",
		Short: "Add a payment profile to an account; card number and CVV are stored encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			v, err := vault.New(cfg.FernetKey)
			if err != nil {
				return err
			}
			p, err := f.profile(v)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			d, _, err := openDB(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer d.Close()

			id, err := store.NewPayments(d).Create(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created payment profile id=%d alias=%q\n", id, p.Alias)
			return nil
		},
	}

	c.Flags().Int64Var(&f.accountID, "account-id", 0, "account id")
	c.Flags().StringVar(&f.alias, "alias", "default", "label for this card")
	c.Flags().StringVar(&f.cardholder, "cardholder", "", "name on card")
	c.Flags().StringVar(&f.number, "number", "", "card number")
	c.Flags().StringVar(&f.expiry, "expiry", "", "expiry MM/YY")
	c.Flags().StringVar(&f.cvv, "cvv", "", "card security code")
	c.Flags().StringVar(&f.address, "address", "", "billing address line 1")
	c.Flags().StringVar(&f.city, "city", "", "billing town or city")
	c.Flags().StringVar(&f.postcode, "postcode", "", "billing postcode")

	_ = c.MarkFlagRequired("account-id")
	_ = c.MarkFlagRequired("cardholder")
	_ = c.MarkFlagRequired("number")
	_ = c.MarkFlagRequired("expiry")
	_ = c.MarkFlagRequired("cvv")
	return c
}
