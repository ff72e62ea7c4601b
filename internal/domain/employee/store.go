package employee

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cryptoutil "ems/internal/platform/crypto"
)

var ErrNotFound = errors.New("employee not found")

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
	Log    *zap.Logger
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{DB: db, Crypto: crypto, Log: log}
}

const selectColumns = `
    SELECT id, first_name, last_name, full_name, email,
           COALESCE(phone, ''),
           role, department, status,
           salary, salary_enc,
           COALESCE(to_char(hire_date, 'YYYY-MM-DD'), ''),
           COALESCE(profile_image, ''),
           COALESCE(created_by_uid::text, ''), created_by_name, created_by_email,
           created_at, updated_at
    FROM employees`

func (s *Store) scan(row pgx.Row) (Employee, error) {
	var emp Employee
	var salaryPlain *float64
	var salaryEnc []byte
	err := row.Scan(
		&emp.ID, &emp.FirstName, &emp.LastName, &emp.FullName, &emp.Email, &emp.Phone,
		&emp.Role, &emp.Department, &emp.Status,
		&salaryPlain, &salaryEnc,
		&emp.HireDate, &emp.ProfileImage,
		&emp.CreatedBy.UID, &emp.CreatedBy.Name, &emp.CreatedBy.Email,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	emp.Salary = s.decryptSalary(emp.ID, salaryEnc, salaryPlain)
	return emp, nil
}

// decryptSalary prefers the sealed column and falls back to the plain one for
// rows written before a key was configured.
func (s *Store) decryptSalary(id string, sealed []byte, plain *float64) *float64 {
	if len(sealed) == 0 || !s.Crypto.Configured() {
		return plain
	}
	value, err := s.Crypto.DecryptFloat(sealed)
	if err != nil {
		s.Log.Warn("salary decrypt failed", zap.String("employeeId", id), zap.Error(err))
		return plain
	}
	return value
}

// sealSalary returns the (plain, sealed) column pair for a salary. With a key
// configured the plain column stays NULL.
func (s *Store) sealSalary(salary *float64) (*float64, []byte, error) {
	if salary == nil || !s.Crypto.Configured() {
		return salary, nil, nil
	}
	sealed, err := s.Crypto.EncryptFloat(salary)
	if err != nil {
		return nil, nil, err
	}
	return nil, sealed, nil
}

func (s *Store) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, selectColumns+" ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	return s.scan(s.DB.QueryRow(ctx, selectColumns+" WHERE id::text = $1", id))
}

func (s *Store) Create(ctx context.Context, emp Employee) (Employee, error) {
	salary, salaryEnc, err := s.sealSalary(emp.Salary)
	if err != nil {
		return Employee{}, err
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (first_name, last_name, full_name, email, phone, role, department, status,
                           salary, salary_enc, hire_date, profile_image,
                           created_by_uid, created_by_name, created_by_email)
    VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,NULLIF($11,'')::date,NULLIF($12,''),
            NULLIF($13,'')::uuid,$14,$15)
    RETURNING id
  `, emp.FirstName, emp.LastName, emp.FullName, emp.Email, emp.Phone, emp.Role, emp.Department, emp.Status,
		salary, salaryEnc, emp.HireDate, emp.ProfileImage,
		emp.CreatedBy.UID, emp.CreatedBy.Name, emp.CreatedBy.Email,
	).Scan(&id); err != nil {
		return Employee{}, err
	}
	return s.Get(ctx, id)
}

// Update rewrites the editable columns. The creator stamp is never touched.
func (s *Store) Update(ctx context.Context, emp Employee) (Employee, error) {
	salary, salaryEnc, err := s.sealSalary(emp.Salary)
	if err != nil {
		return Employee{}, err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $1, last_name = $2, full_name = $3, email = $4, phone = NULLIF($5,''),
        role = $6, department = $7, status = $8, salary = $9, salary_enc = $10,
        hire_date = NULLIF($11,'')::date, profile_image = NULLIF($12,''), updated_at = now()
    WHERE id::text = $13
  `, emp.FirstName, emp.LastName, emp.FullName, emp.Email, emp.Phone,
		emp.Role, emp.Department, emp.Status, salary, salaryEnc,
		emp.HireDate, emp.ProfileImage, emp.ID)
	if err != nil {
		return Employee{}, err
	}
	if tag.RowsAffected() == 0 {
		return Employee{}, ErrNotFound
	}
	return s.Get(ctx, emp.ID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id::text = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
