package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const IdempotencyHeader = "Idempotency-Key"

var (
	ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInFlight = errors.New("idempotency key is held by a request still in progress")
)

// IdempotencyStore remembers the response of a create call per user, key and
// endpoint so a double-submitted form does not produce two records. A row
// with a NULL response is a reservation held by a request still running.
type IdempotencyStore struct {
	db *pgxpool.Pool
}

func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Reserve claims key for this request. A nil response with a nil error means
// the caller now holds the key and must Complete or Release it. A finished
// request with the same hash returns its stored response.
func (s *IdempotencyStore) Reserve(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, NULL)
    ON CONFLICT (user_id, key, endpoint) DO NOTHING
  `, userID, key, endpoint, requestHash)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var storedHash string
	var stored []byte
	err = s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		// released between the insert and the read
		return nil, ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, err
	}
	return replay(storedHash, requestHash, stored)
}

func replay(storedHash, requestHash string, stored []byte) (json.RawMessage, error) {
	if storedHash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	if stored == nil {
		return nil, ErrIdempotencyInFlight
	}
	return stored, nil
}

// Complete stores the response for a reservation made by Reserve.
func (s *IdempotencyStore) Complete(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    UPDATE idempotency_keys
    SET response_json = $5
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
      AND request_hash = $4 AND response_json IS NULL
  `, userID, key, endpoint, requestHash, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release drops an unfinished reservation so the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, userID, endpoint, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3 AND response_json IS NULL
  `, userID, key, endpoint)
	return err
}
