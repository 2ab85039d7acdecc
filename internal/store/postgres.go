package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates any missing tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password, display_name, created_at`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName)

	out, err := scanUser(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return out, nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return User{}, notFound("get user", err)
	}
	return u, nil
}

func (p *Postgres) UserByID(ctx context.Context, id string) (User, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return User{}, notFound("get user", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	return u, err
}

const drawingColumns = `id, name, owner_id, eye, width, height, created_at, updated_at`

func (p *Postgres) CreateDrawing(ctx context.Context, d Drawing) (Drawing, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO drawings (id, name, owner_id, eye, width, height)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+drawingColumns,
		d.ID, d.Name, d.OwnerID, d.Eye, d.Width, d.Height)

	out, err := scanDrawing(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return Drawing{}, fmt.Errorf("create drawing %s: %w", d.ID, ErrExists)
		}
		return Drawing{}, fmt.Errorf("create drawing: %w", err)
	}
	return out, nil
}

func (p *Postgres) GetDrawing(ctx context.Context, id string) (Drawing, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+drawingColumns+` FROM drawings WHERE id = $1`, id)
	d, err := scanDrawing(row)
	if err != nil {
		return Drawing{}, notFound("get drawing", err)
	}
	return d, nil
}

func (p *Postgres) ListDrawings(ctx context.Context, ownerID string) ([]Drawing, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+drawingColumns+` FROM drawings WHERE owner_id = $1 ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	drawings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Drawing, error) {
		return scanDrawing(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	return drawings, nil
}

func (p *Postgres) DeleteDrawing(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM drawings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete drawing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDrawing(row pgx.Row) (Drawing, error) {
	var d Drawing
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.Eye, &d.Width, &d.Height, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (p *Postgres) SaveSnapshot(ctx context.Context, id, drawingID string, doc json.RawMessage) (Snapshot, error) {
	var snap Snapshot
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		// Serializes concurrent saves of the same drawing.
		if _, err := tx.Exec(ctx, `SELECT id FROM drawings WHERE id = $1 FOR UPDATE`, drawingID); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO snapshots (id, drawing_id, version, document)
			SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3
			FROM snapshots WHERE drawing_id = $2
			RETURNING id, drawing_id, version, document, created_at`,
			id, drawingID, []byte(doc))
		if err := row.Scan(&snap.ID, &snap.DrawingID, &snap.Version, &snap.Document, &snap.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE drawings SET updated_at = now() WHERE id = $1`, drawingID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return Snapshot{}, fmt.Errorf("save snapshot of %s: %w", drawingID, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

func (p *Postgres) LatestSnapshot(ctx context.Context, drawingID string) (Snapshot, error) {
	var snap Snapshot
	err := p.pool.QueryRow(ctx, `
		SELECT id, drawing_id, version, document, created_at
		FROM snapshots WHERE drawing_id = $1
		ORDER BY version DESC LIMIT 1`, drawingID).
		Scan(&snap.ID, &snap.DrawingID, &snap.Version, &snap.Document, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, notFound("get snapshot", err)
	}
	return snap, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
