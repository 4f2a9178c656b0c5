package gst

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
)

// Repository reads and seeds GST Settings in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetGSTAccounts returns the account heads configured for company.
func (r *Repository) GetGSTAccounts(ctx context.Context, company string, onlyNonReverseCharge bool) (Accounts, error) {
	rows, err := r.pool.Query(ctx, `SELECT company, cgst_account, sgst_account, igst_account, cess_account, is_reverse_charge_account
FROM gst_accounts WHERE company = $1 ORDER BY idx`, company)
	if err != nil {
		return Accounts{}, fmt.Errorf("gst: query accounts: %w", err)
	}
	defer rows.Close()
	var settings []AccountRow
	for rows.Next() {
		var row AccountRow
		if err := rows.Scan(&row.Company, &row.CGSTAccount, &row.SGSTAccount, &row.IGSTAccount, &row.CessAccount, &row.ReverseCharge); err != nil {
			return Accounts{}, err
		}
		settings = append(settings, row)
	}
	if err := rows.Err(); err != nil {
		return Accounts{}, err
	}
	accounts := CollectAccounts(settings, onlyNonReverseCharge)
	if accounts.Empty() {
		return Accounts{}, fmt.Errorf("%w: please set GST Accounts in GST Settings for company %s", ErrAccountsNotConfigured, company)
	}
	return accounts, nil
}

// B2CLimit returns the configured B2C limit; zero means unset.
func (r *Repository) B2CLimit(ctx context.Context) (float64, error) {
	var limit float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(b2c_limit, 0)::float8 FROM gst_settings WHERE id = 1`).Scan(&limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("gst: b2c limit: %w", err)
	}
	return limit, nil
}

// CompanyGSTIN returns the GSTIN of address, falling back to the company's
// own addresses, primary first.
func (r *Repository) CompanyGSTIN(ctx context.Context, company, address string) (string, error) {
	if address != "" {
		var gstin string
		err := r.pool.QueryRow(ctx, `SELECT COALESCE(gstin, '') FROM addresses WHERE name = $1`, address).Scan(&gstin)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("gst: address gstin: %w", err)
		}
		if gstin != "" {
			return gstin, nil
		}
	}
	gstins, err := r.companyGSTINs(ctx, company)
	if err != nil {
		return "", err
	}
	if len(gstins) == 0 {
		return "", missingGSTIN(company, address)
	}
	return gstins[0], nil
}

// CompanyGSTINs returns every GSTIN registered on the company's addresses.
func (r *Repository) CompanyGSTINs(ctx context.Context, company string) ([]string, error) {
	gstins, err := r.companyGSTINs(ctx, company)
	if err != nil {
		return nil, err
	}
	if len(gstins) == 0 {
		return nil, missingGSTIN(company, "")
	}
	return gstins, nil
}

func (r *Repository) companyGSTINs(ctx context.Context, company string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.gstin FROM addresses a
JOIN address_links l ON l.address = a.name
WHERE a.is_your_company_address AND l.link_doctype = 'Company' AND l.link_name = $1 AND COALESCE(a.gstin, '') <> ''
ORDER BY a.is_primary_address DESC, a.name`, company)
	if err != nil {
		return nil, fmt.Errorf("gst: company gstins: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var gstin string
		if err := rows.Scan(&gstin); err != nil {
			return nil, err
		}
		out = append(out, gstin)
	}
	return out, rows.Err()
}

func missingGSTIN(company, address string) error {
	return fmt.Errorf("%w: Please set valid GSTIN No. in Company Address %s for company %s", ErrCompanyGSTINMissing, address, company)
}

// Seed upserts the content of a settings file in one transaction.
func (r *Repository) Seed(ctx context.Context, file SettingsFile) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO gst_settings (id, b2c_limit) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET b2c_limit = EXCLUDED.b2c_limit`, file.B2CLimit); err != nil {
			return fmt.Errorf("gst: seed settings: %w", err)
		}
		for _, company := range file.companies() {
			if _, err := tx.Exec(ctx, `DELETE FROM gst_accounts WHERE company = $1`, company); err != nil {
				return fmt.Errorf("gst: reset accounts: %w", err)
			}
		}
		for i, acc := range file.Accounts {
			if _, err := tx.Exec(ctx, `INSERT INTO gst_accounts (company, idx, cgst_account, sgst_account, igst_account, cess_account, is_reverse_charge_account)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, acc.Company, i+1, acc.CGST, acc.SGST, acc.IGST, acc.Cess, acc.ReverseCharge); err != nil {
				return fmt.Errorf("gst: seed account %s: %w", acc.Company, err)
			}
		}
		for _, addr := range file.Addresses {
			if _, err := tx.Exec(ctx, `INSERT INTO addresses (name, gstin, is_your_company_address, is_primary_address)
VALUES ($1, $2, TRUE, $3)
ON CONFLICT (name) DO UPDATE SET gstin = EXCLUDED.gstin, is_your_company_address = TRUE, is_primary_address = EXCLUDED.is_primary_address`,
				addr.Name, addr.GSTIN, addr.Primary); err != nil {
				return fmt.Errorf("gst: seed address %s: %w", addr.Name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO address_links (address, link_doctype, link_name)
VALUES ($1, 'Company', $2) ON CONFLICT DO NOTHING`, addr.Name, addr.Company); err != nil {
				return fmt.Errorf("gst: seed address link %s: %w", addr.Name, err)
			}
		}
		return nil
	})
}
