package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/voltquote/internal/accounts"
	"github.com/Simplici0/voltquote/internal/catalogue"
	"github.com/Simplici0/voltquote/internal/db"
)

const defaultCompanyName = "VoltQuote Installations"

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail        string
	AdminPassword     string
	InstallerEmail    string
	InstallerPassword string
	Catalogue         catalogue.File
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, database *sql.DB, cfg Config) (Stats, error) {
	stats := Stats{}
	err := db.InTx(ctx, database, func(tx *sql.Tx) error {
		users := accounts.NewStore(tx)

		if err := seedUser(ctx, users, cfg.AdminEmail, cfg.AdminPassword, accounts.User{
			Name: "Administrator",
			Role: accounts.RoleAdmin,
		}, &stats); err != nil {
			return err
		}

		company, err := ensureCompany(ctx, users, &stats)
		if err != nil {
			return err
		}

		if err := seedUser(ctx, users, cfg.InstallerEmail, cfg.InstallerPassword, accounts.User{
			Name:      "Installer",
			Role:      accounts.RoleInstaller,
			CompanyID: company.ID,
		}, &stats); err != nil {
			return err
		}

		imported, err := catalogue.NewStore(tx).Import(ctx, cfg.Catalogue)
		if err != nil {
			return fmt.Errorf("import catalogue: %w", err)
		}
		stats.Inserts += imported.Total()
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func seedUser(ctx context.Context, users *accounts.Store, email, password string, u accounts.User, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := users.UserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, accounts.ErrNotFound) {
		return fmt.Errorf("check %s user existence: %w", u.Role, err)
	}

	u.Email = email
	u.Active = true
	if _, err := users.CreateUser(ctx, u, password); err != nil {
		return fmt.Errorf("insert %s user: %w", u.Role, err)
	}
	stats.Inserts++
	return nil
}

func ensureCompany(ctx context.Context, users *accounts.Store, stats *Stats) (accounts.Company, error) {
	company, err := users.CompanyByName(ctx, defaultCompanyName)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, accounts.ErrNotFound) {
		return accounts.Company{}, fmt.Errorf("check default company existence: %w", err)
	}

	company, err = users.CreateCompany(ctx, accounts.Company{
		Name:               defaultCompanyName,
		SubscriptionTier:   "professional",
		SubscriptionStatus: "active",
	})
	if err != nil {
		return accounts.Company{}, fmt.Errorf("insert default company: %w", err)
	}
	stats.Inserts++
	return company, nil
}
