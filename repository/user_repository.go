package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"userSupplement/models"
)

const userColumns = `id, external_id, name, username, email, phone, website, company_name, company_catchphrase, company_bs, created_at, updated_at`

type UserRepository struct {
	db Queryer
}

func NewUserRepository(db Queryer) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and returns it with its generated ID.
// created_at and updated_at are both set to the current UTC time.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	now := time.Now().UTC()
	out := *u
	out.CreatedAt, out.UpdatedAt = now, now
	q := r.db.Rebind(`INSERT INTO users (external_id, name, username, email, phone, website, company_name, company_catchphrase, company_bs, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?) RETURNING id`)
	err := r.db.GetContext(ctx, &out.ID, q,
		out.ExternalID, out.Name, out.Username, out.Email, out.Phone, out.Website,
		out.CompanyName, out.CompanyCatchphrase, out.CompanyBS, out.CreatedAt, out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update overwrites every mapped field of the user identified by u.ID and
// refreshes updated_at. Returns sql.ErrNoRows when the user does not exist.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET external_id = ?, name = ?, username = ?, email = ?, phone = ?, website = ?,
company_name = ?, company_catchphrase = ?, company_bs = ?, updated_at = ? WHERE id = ?`),
		u.ExternalID, u.Name, u.Username, u.Email, u.Phone, u.Website,
		u.CompanyName, u.CompanyCatchphrase, u.CompanyBS, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByExternalID looks a user up by the identifier assigned upstream.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = normalizePage(limit, offset)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.User
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every user ordered by id. Used by the per-user jobs.
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var out []models.User
	if err := r.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSummaries pages through users with their address and credit card counts.
func (r *UserRepository) ListSummaries(ctx context.Context, limit, offset int) ([]models.UserSummary, error) {
	limit, offset = normalizePage(limit, offset)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.UserSummary
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
SELECT u.id, u.external_id, u.name, u.username, u.email,
  (SELECT COUNT(*) FROM addresses a WHERE a.user_id = u.id) AS addresses_count,
  (SELECT COUNT(*) FROM credit_cards c WHERE c.user_id = u.id) AS credit_cards_count
FROM users u ORDER BY u.id LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, "users")
}

// Delete removes a user; addresses and credit cards go with it (ON DELETE CASCADE).
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	return err
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// count runs SELECT COUNT(*) against one of the fixed table names above.
func count(ctx context.Context, db Queryer, table string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, err
	}
	return n, nil
}
