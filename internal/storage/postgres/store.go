package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

// Ensure Store satisfies the storage.FieldStore interface at compile time.
var _ storage.FieldStore = (*Store)(nil)

// Store provides Postgres-backed persistence for the field-data API.
type Store struct {
	pool *pgxpool.Pool
}

// NewFieldStore creates a new Store and runs migrations.
func NewFieldStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT UNIQUE NOT NULL,
			phone TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'booth_boy',
			assigned_booth_ids TEXT[] NOT NULL DEFAULT '{}',
			created_by TEXT NOT NULL DEFAULT '',
			state_id TEXT NOT NULL DEFAULT '',
			district_id TEXT NOT NULL DEFAULT '',
			assembly_id TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS users_created_by_idx ON users (created_by);`,
		`CREATE TABLE IF NOT EXISTS booths (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL,
			name TEXT NOT NULL,
			state_code TEXT NOT NULL,
			district_code TEXT NOT NULL,
			assembly_id TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS booths_locale_idx ON booths (state_code, district_code, assembly_id);`,
		`CREATE TABLE IF NOT EXISTS constituencies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			district TEXT NOT NULL,
			state_id TEXT NOT NULL,
			district_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS admin_constituencies (
			admin_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			constituency_id TEXT NOT NULL REFERENCES constituencies(id) ON DELETE CASCADE,
			PRIMARY KEY (admin_id, constituency_id)
		);`,
		`CREATE TABLE IF NOT EXISTS voters (
			epic TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			relative_name TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			age INT NOT NULL DEFAULT 0,
			mobile TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			booth_id TEXT NOT NULL DEFAULT '',
			part_number TEXT NOT NULL DEFAULT '',
			caste TEXT NOT NULL DEFAULT '',
			religion TEXT NOT NULL DEFAULT '',
			party_preference TEXT NOT NULL DEFAULT '',
			support_level TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS voters_booth_idx ON voters (booth_id);`,
		kvSchema,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, username, full_name, email, phone, role, assigned_booth_ids, created_by,
	state_id, district_id, assembly_id, password_hash, created_at`

// CreateUser inserts a new user row, assigning an id when none is set.
func (s *Store) CreateUser(ctx context.Context, account models.Account) (models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.AssignedBoothIDs == nil {
		account.AssignedBoothIDs = []string{}
	}
	query := `
		INSERT INTO users (id, username, full_name, email, phone, role, assigned_booth_ids, created_by,
			state_id, district_id, assembly_id, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query,
		account.ID, account.Username, account.FullName, account.Email, account.Phone, account.Role,
		account.AssignedBoothIDs, account.CreatedBy, account.StateID, account.DistrictID, account.AssemblyID,
		account.PasswordHash)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Account{}, storage.ErrAlreadyExists
		}
		return models.Account{}, err
	}
	return created, nil
}

// FindByID fetches a user by id.
func (s *Store) FindByID(ctx context.Context, id string) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
	return scanAccount(row)
}

// FindByUsernameOrEmail fetches the first user matching the identifier as username or email.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1;`, identifier)
	return scanAccount(row)
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]models.SystemUser, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id;`)
}

// ListUsersCreatedBy returns the users an admin created.
func (s *Store) ListUsersCreatedBy(ctx context.Context, creatorID string) ([]models.SystemUser, error) {
	return s.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE created_by = $1 ORDER BY created_at, id;`, creatorID)
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]models.SystemUser, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []models.SystemUser{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, account.SystemUser)
	}
	return users, rows.Err()
}

const voterColumns = `epic, name, relative_name, gender, age, mobile, address, booth_id, part_number,
	caste, religion, party_preference, support_level, created_by`

// ListVoters returns the whole roll ordered by EPIC.
func (s *Store) ListVoters(ctx context.Context) ([]models.VoterRecord, error) {
	return s.queryVoters(ctx, `SELECT `+voterColumns+` FROM voters ORDER BY epic;`)
}

// ListVotersInBooths returns voters registered at any of the given booths.
func (s *Store) ListVotersInBooths(ctx context.Context, boothIDs []string) ([]models.VoterRecord, error) {
	return s.queryVoters(ctx,
		`SELECT `+voterColumns+` FROM voters WHERE booth_id = ANY($1) ORDER BY epic;`, boothIDs)
}

func (s *Store) queryVoters(ctx context.Context, query string, args ...any) ([]models.VoterRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query voters: %w", err)
	}
	defer rows.Close()

	voters := []models.VoterRecord{}
	for rows.Next() {
		var v models.VoterRecord
		if err := rows.Scan(&v.EPIC, &v.Name, &v.RelativeName, &v.Gender, &v.Age, &v.Mobile, &v.Address,
			&v.BoothID, &v.PartNumber, &v.Caste, &v.Religion, &v.PartyPreference, &v.SupportLevel,
			&v.CreatedBy); err != nil {
			return nil, err
		}
		voters = append(voters, v)
	}
	return voters, rows.Err()
}

const boothColumns = `id, number, name, state_code, district_code, assembly_id`

// ListBoothsByLocale returns the booths of one assembly.
func (s *Store) ListBoothsByLocale(ctx context.Context, locale models.LocaleHint) ([]models.PollingBooth, error) {
	return s.queryBooths(ctx,
		`SELECT `+boothColumns+` FROM booths
		WHERE state_code = $1 AND district_code = $2 AND assembly_id = $3 ORDER BY number, id;`,
		locale.StateID, locale.DistrictID, locale.AssemblyID)
}

// ListBoothsByIDs returns the booths with the given ids.
func (s *Store) ListBoothsByIDs(ctx context.Context, boothIDs []string) ([]models.PollingBooth, error) {
	return s.queryBooths(ctx,
		`SELECT `+boothColumns+` FROM booths WHERE id = ANY($1) ORDER BY number, id;`, boothIDs)
}

func (s *Store) queryBooths(ctx context.Context, query string, args ...any) ([]models.PollingBooth, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query booths: %w", err)
	}
	defer rows.Close()

	booths := []models.PollingBooth{}
	for rows.Next() {
		var b models.PollingBooth
		if err := rows.Scan(&b.ID, &b.Number, &b.Name, &b.StateCode, &b.DistrictCode, &b.AssemblyID); err != nil {
			return nil, err
		}
		booths = append(booths, b)
	}
	return booths, rows.Err()
}

// ListConstituenciesByLocale returns the assemblies of one district.
func (s *Store) ListConstituenciesByLocale(ctx context.Context, locale models.LocaleHint) ([]models.Constituency, error) {
	return s.queryConstituencies(ctx,
		`SELECT id, name, district FROM constituencies WHERE state_id = $1 AND district_id = $2 ORDER BY name, id;`,
		locale.StateID, locale.DistrictID)
}

// ListConstituenciesAssignedTo returns the constituencies a super admin assigned to an admin.
func (s *Store) ListConstituenciesAssignedTo(ctx context.Context, adminID string) ([]models.Constituency, error) {
	return s.queryConstituencies(ctx,
		`SELECT c.id, c.name, c.district FROM constituencies c
		JOIN admin_constituencies ac ON ac.constituency_id = c.id
		WHERE ac.admin_id = $1 ORDER BY c.name, c.id;`, adminID)
}

func (s *Store) queryConstituencies(ctx context.Context, query string, args ...any) ([]models.Constituency, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query constituencies: %w", err)
	}
	defer rows.Close()

	out := []models.Constituency{}
	for rows.Next() {
		var c models.Constituency
		if err := rows.Scan(&c.ID, &c.Name, &c.District); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.FullName, &a.Email, &a.Phone, &a.Role, &a.AssignedBoothIDs,
		&a.CreatedBy, &a.StateID, &a.DistrictID, &a.AssemblyID, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	return a, nil
}
