package announcement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("announcement not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const selectColumns = `
    SELECT id, title, content, priority,
           COALESCE(author_uid::text, ''), author_name, author_email,
           read_by::text[], created_at, updated_at
    FROM announcements`

func scan(row pgx.Row) (Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Priority,
		&a.Author.UID, &a.Author.Name, &a.Author.Email,
		&a.ReadBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Announcement{}, ErrNotFound
	}
	if a.ReadBy == nil {
		a.ReadBy = []string{}
	}
	return a, err
}

func (s *Store) List(ctx context.Context) ([]Announcement, error) {
	rows, err := s.DB.Query(ctx, selectColumns+" ORDER BY created_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Announcement{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Announcement, error) {
	return scan(s.DB.QueryRow(ctx, selectColumns+" WHERE id::text = $1", id))
}

func (s *Store) Create(ctx context.Context, a Announcement) (Announcement, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO announcements (title, content, priority, author_uid, author_name, author_email)
    VALUES ($1,$2,$3,NULLIF($4,'')::uuid,$5,$6)
    RETURNING id
  `, a.Title, a.Content, a.Priority, a.Author.UID, a.Author.Name, a.Author.Email).Scan(&id); err != nil {
		return Announcement{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Update(ctx context.Context, id string, in Input) (Announcement, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements
    SET title = $1, content = $2, priority = $3, updated_at = now()
    WHERE id::text = $4
  `, in.Title, in.Content, in.Priority, id)
	if err != nil {
		return Announcement{}, err
	}
	if tag.RowsAffected() == 0 {
		return Announcement{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM announcements WHERE id::text = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead adds uid to read_by unless already present. It reports whether the
// set changed; a missing announcement is ErrNotFound.
func (s *Store) MarkRead(ctx context.Context, id, uid string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements
    SET read_by = array_append(read_by, $2::uuid)
    WHERE id::text = $1 AND NOT ($2::uuid = ANY(read_by))
  `, id, uid)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) UnreadCount(ctx context.Context, uid string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM announcements WHERE NOT ($1::uuid = ANY(read_by))
  `, uid).Scan(&n)
	return n, err
}
