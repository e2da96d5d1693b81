package registrations

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/aowusu/birthsync/internal/client/models"
	"github.com/aowusu/birthsync/internal/common"
	"github.com/aowusu/birthsync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const regColumns = `id, user_id, registration_number, child_name, sex, date_of_birth,
	place_of_birth, mother_name, father_name, status, sync_status, created_at, updated_at`

func (r *SQLiteRepository) Add(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}

	query := `INSERT INTO registrations (` + regColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		reg.ID, reg.UserID, reg.RegistrationNumber, reg.ChildName, reg.Sex,
		reg.DateOfBirth, reg.PlaceOfBirth, reg.MotherName, reg.FatherName,
		reg.Status, reg.SyncStatus, reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateKey
		}
		return common.StorageError("add registration", reg.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + regColumns + ` FROM registrations WHERE id = ?`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.StorageError("get registration", id, err)
	}
	return reg, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.Registration, error) {
	query := `SELECT ` + regColumns + ` FROM registrations ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.StorageError("list registrations", "", err)
	}
	defer rows.Close()

	var result []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, common.StorageError("scan registration", "", err)
		}
		result = append(result, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError("list registrations", "", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, reg *models.Registration) error {
	query := `INSERT INTO registrations (` + regColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				registration_number = excluded.registration_number,
				child_name = excluded.child_name,
				sex = excluded.sex,
				date_of_birth = excluded.date_of_birth,
				place_of_birth = excluded.place_of_birth,
				mother_name = excluded.mother_name,
				father_name = excluded.father_name,
				status = excluded.status,
				sync_status = excluded.sync_status,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		reg.ID, reg.UserID, reg.RegistrationNumber, reg.ChildName, reg.Sex,
		reg.DateOfBirth, reg.PlaceOfBirth, reg.MotherName, reg.FatherName,
		reg.Status, reg.SyncStatus, reg.CreatedAt, reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateKey
		}
		return common.StorageError("update registration", reg.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	if err != nil {
		return common.StorageError("delete registration", id, err)
	}
	return nil
}

func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return common.StorageError("set sync status", id, err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(s scanner) (*models.Registration, error) {
	reg := &models.Registration{}
	err := s.Scan(&reg.ID, &reg.UserID, &reg.RegistrationNumber, &reg.ChildName,
		&reg.Sex, &reg.DateOfBirth, &reg.PlaceOfBirth, &reg.MotherName,
		&reg.FatherName, &reg.Status, &reg.SyncStatus, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// isUniqueViolation detects a SQLite unique-constraint failure by message, the
// same way the driver surfaces it through database/sql.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
