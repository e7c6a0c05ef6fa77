package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/utilities"
)

// ContactRepo provides data access for the contacts table using sqlx.
// The same type serves plain connections and transactions.
type ContactRepo struct {
	db sqlx.ExtContext
	// root is nil when the repo is bound to a transaction.
	root *sqlx.DB
}

func NewContactRepo(db *sqlx.DB) *ContactRepo { return &ContactRepo{db: db, root: db} }

// EnsureTable creates the contacts table if not exists (idempotent).
// email/phone carry plain indexes only: bulk upserts may store duplicates.
func (r *ContactRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS contacts (
  id VARCHAR(36) PRIMARY KEY,
  owner_id VARCHAR(32) NOT NULL,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  timezone TEXT NOT NULL DEFAULT '',
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_contacts_owner ON contacts(owner_id, is_active);
CREATE INDEX IF NOT EXISTS idx_contacts_owner_email ON contacts(owner_id, email);
CREATE INDEX IF NOT EXISTS idx_contacts_owner_phone ON contacts(owner_id, phone);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Ping checks that a connection can be obtained from the pool.
func (r *ContactRepo) Ping(ctx context.Context) error {
	if r.root == nil {
		return nil
	}
	return r.root.PingContext(ctx)
}

// WithTx runs fn with a repo bound to a new transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (r *ContactRepo) WithTx(ctx context.Context, fn func(tx *ContactRepo) error) error {
	if r.root == nil {
		return fn(r)
	}
	tx, err := r.root.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&ContactRepo{db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// FindByOwnerAndIdentity returns the first contact of owner that has the same
// email or (non-empty) phone, or sql.ErrNoRows.
func (r *ContactRepo) FindByOwnerAndIdentity(ctx context.Context, ownerID, email, phone string) (*entity.Contact, error) {
	const q = `SELECT id, owner_id, name, email, phone, address, timezone, is_active, created_at, updated_at
	  FROM contacts WHERE owner_id=$1 AND (email=$2 OR ($3 <> '' AND phone=$3)) LIMIT 1`
	var c entity.Contact
	if err := sqlx.GetContext(ctx, r.db, &c, q, ownerID, email, phone); err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert stores c and returns its id. A missing id is generated.
func (r *ContactRepo) Insert(ctx context.Context, c *entity.Contact) (string, error) {
	if c.ID == "" {
		c.ID = utilities.NewContactID()
	}
	const q = `INSERT INTO contacts (id, owner_id, name, email, phone, address, timezone)
	  VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING is_active, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, c.ID, c.OwnerID, c.Name, c.Email, c.Phone, c.Address, c.Timezone)
	if err := row.Scan(&c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return "", err
	}
	return c.ID, nil
}

// UpdateByID overwrites the mutable fields of (id, ownerID) and returns the
// number of affected rows. Soft-deleted contacts are matched too.
func (r *ContactRepo) UpdateByID(ctx context.Context, id, ownerID string, f entity.Fields) (int64, error) {
	const q = `UPDATE contacts SET name=$1, email=$2, phone=$3, address=$4, timezone=$5, updated_at=NOW()
	  WHERE id=$6 AND owner_id=$7`
	res, err := r.db.ExecContext(ctx, q, f.Name, f.Email, f.Phone, f.Address, f.Timezone, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SoftDelete flags (id, ownerID) inactive.
func (r *ContactRepo) SoftDelete(ctx context.Context, id, ownerID string) (int64, error) {
	const q = `UPDATE contacts SET is_active=false, updated_at=NOW() WHERE id=$1 AND owner_id=$2`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var sortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"timezone":   "timezone",
	"created_at": "created_at",
}

// ListActive returns the active contacts of owner matching f.
func (r *ContactRepo) ListActive(ctx context.Context, ownerID string, f entity.ListFilter) ([]entity.Contact, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, owner_id, name, email, phone, address, timezone, is_active, created_at, updated_at
	  FROM contacts WHERE owner_id=$1 AND is_active=true`)
	args := []any{ownerID}
	if f.Name != "" {
		args = append(args, "%"+f.Name+"%")
		fmt.Fprintf(&sb, " AND name ILIKE $%d", len(args))
	}
	if f.Email != "" {
		args = append(args, "%"+f.Email+"%")
		fmt.Fprintf(&sb, " AND email ILIKE $%d", len(args))
	}
	if f.Timezone != "" {
		args = append(args, f.Timezone)
		fmt.Fprintf(&sb, " AND timezone=$%d", len(args))
	}
	col, ok := sortColumns[strings.ToLower(f.SortField)]
	if !ok {
		col = "created_at"
	}
	order := "ASC"
	if strings.EqualFold(f.SortOrder, "desc") {
		order = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, id ASC", col, order)

	out := []entity.Contact{}
	if err := sqlx.SelectContext(ctx, r.db, &out, sb.String(), args...); err != nil {
		return nil, err
	}
	return out, nil
}
