package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("accounts: not found")
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
)

// Role is the dashboard a user signs in to.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleInstaller Role = "installer"
	RoleAssessor  Role = "assessor"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleInstaller || r == RoleAssessor
}

type Company struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Address            string    `json:"address"`
	Postcode           string    `json:"postcode"`
	MCSNumber          string    `json:"mcs_number,omitempty"`
	UmbrellaScheme     bool      `json:"is_umbrella_scheme"`
	SubscriptionTier   string    `json:"subscription_tier"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	CompanyID    string     `json:"company_id,omitempty"`
	Active       bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  DBTX
	now func() time.Time
}

func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Store) CreateCompany(ctx context.Context, c Company) (Company, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Company{}, errors.New("company name is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.SubscriptionTier == "" {
		c.SubscriptionTier = "starter"
	}
	if c.SubscriptionStatus == "" {
		c.SubscriptionStatus = "trial"
	}
	c.CreatedAt = s.now().UTC().Truncate(time.Second)

	var mcs any
	if c.MCSNumber != "" {
		mcs = c.MCSNumber
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (
			id, name, email, phone, address, postcode, mcs_number,
			is_umbrella_scheme, subscription_tier, subscription_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Email, c.Phone, c.Address, c.Postcode, mcs,
		c.UmbrellaScheme, c.SubscriptionTier, c.SubscriptionStatus, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Company{}, fmt.Errorf("insert company: %w", err)
	}
	return c, nil
}

const companySelect = `
	SELECT id, name, email, phone, address, postcode, COALESCE(mcs_number, ''),
		is_umbrella_scheme, subscription_tier, subscription_status, created_at
	FROM companies
`

func (s *Store) companyWhere(ctx context.Context, where string, arg any) (Company, error) {
	var c Company
	var createdAt string
	err := s.db.QueryRowContext(ctx, companySelect+where, arg).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Postcode, &c.MCSNumber,
		&c.UmbrellaScheme, &c.SubscriptionTier, &c.SubscriptionStatus, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	if err != nil {
		return Company{}, fmt.Errorf("query company: %w", err)
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Company{}, fmt.Errorf("parse company created_at: %w", err)
	}
	return c, nil
}

func (s *Store) CompanyByID(ctx context.Context, id string) (Company, error) {
	return s.companyWhere(ctx, `WHERE id = ?`, id)
}

func (s *Store) CompanyByName(ctx context.Context, name string) (Company, error) {
	return s.companyWhere(ctx, `WHERE name = ?`, name)
}

// CreateUser stores a user with a bcrypt hash of password.
func (s *Store) CreateUser(ctx context.Context, u User, password string) (User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.Email == "" {
		return User{}, errors.New("email is required")
	}
	if password == "" {
		return User{}, errors.New("password is required")
	}
	if !u.Role.Valid() {
		return User{}, fmt.Errorf("role %q is not one of admin, installer, assessor", u.Role)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = hash
	u.CreatedAt = s.now().UTC().Truncate(time.Second)

	var companyID any
	if u.CompanyID != "" {
		companyID = u.CompanyID
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, company_id, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), companyID, u.Active, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	var lastLogin sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, role, COALESCE(company_id, ''), is_active, last_login, created_at
		FROM users
		WHERE email = ?
	`, normalizeEmail(email)).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CompanyID, &u.Active, &lastLogin, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	if lastLogin.Valid {
		t, err := time.Parse(time.RFC3339, lastLogin.String)
		if err != nil {
			return User{}, fmt.Errorf("parse user last_login: %w", err)
		}
		u.LastLogin = &t
	}
	return u, nil
}

// Authenticate checks the password and that the user is active and holds
// role. Every failure returns ErrInvalidCredentials so callers cannot tell an
// unknown email from a wrong password or role.
func (s *Store) Authenticate(ctx context.Context, email, password string, role Role) (User, error) {
	u, err := s.UserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	if !u.Active || u.Role != role {
		return User{}, ErrInvalidCredentials
	}

	now := s.now().UTC().Truncate(time.Second)
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, now.Format(time.RFC3339), u.ID); err != nil {
		return User{}, fmt.Errorf("update last login: %w", err)
	}
	u.LastLogin = &now
	return u, nil
}
