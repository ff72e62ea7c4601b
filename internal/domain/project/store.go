package project

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("project not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const selectColumns = `
    SELECT id, name, description, status,
           COALESCE(to_char(start_date, 'YYYY-MM-DD'), ''),
           COALESCE(to_char(end_date, 'YYYY-MM-DD'), ''),
           COALESCE(created_by_uid::text, ''), created_by_name, created_by_email,
           created_at, updated_at
    FROM projects`

func scan(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.StartDate, &p.EndDate,
		&p.CreatedBy.UID, &p.CreatedBy.Name, &p.CreatedBy.Email, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return p, err
}

// List returns projects newest first, optionally narrowed to one status.
func (s *Store) List(ctx context.Context, status string) ([]Project, error) {
	query := selectColumns
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY created_at DESC, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Project, error) {
	return scan(s.DB.QueryRow(ctx, selectColumns+" WHERE id::text = $1", id))
}

func (s *Store) Create(ctx context.Context, p Project) (Project, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO projects (name, description, status, start_date, end_date,
                          created_by_uid, created_by_name, created_by_email)
    VALUES ($1,$2,$3,NULLIF($4,'')::date,NULLIF($5,'')::date,NULLIF($6,'')::uuid,$7,$8)
    RETURNING id
  `, p.Name, p.Description, p.Status, p.StartDate, p.EndDate,
		p.CreatedBy.UID, p.CreatedBy.Name, p.CreatedBy.Email).Scan(&id); err != nil {
		return Project{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Update(ctx context.Context, id string, in Input) (Project, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE projects
    SET name = $1, description = $2, status = $3,
        start_date = NULLIF($4,'')::date, end_date = NULLIF($5,'')::date, updated_at = now()
    WHERE id::text = $6
  `, in.Name, in.Description, in.Status, in.StartDate, in.EndDate, id)
	if err != nil {
		return Project{}, err
	}
	if tag.RowsAffected() == 0 {
		return Project{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM projects WHERE id::text = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
