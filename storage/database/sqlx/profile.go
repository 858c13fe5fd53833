package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/storage/database"
)

const profileColumns = `id, email, password_hash, full_name, role, metadata, created_at, updated_at, last_login`

type profileRepository struct {
	repository
}

var _ auth.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(exec core.DBExecutor) *profileRepository {
	return &profileRepository{repository{exec: exec}}
}

func (repo profileRepository) CreateProfile(ctx context.Context, prof auth.Profile, exec ...core.DBExecutor) (auth.Profile, error) {
	_, err := repo.getExec(exec).Run(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prof.ID, prof.Email, prof.PasswordHash, prof.FullName, prof.Role, prof.Metadata,
		prof.CreatedAt.UTC(), prof.UpdatedAt.UTC(), prof.LastLogin,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return auth.Profile{}, auth.ErrEmailExists
		}
		return auth.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return prof, nil
}

func (repo profileRepository) GetProfileByID(ctx context.Context, id string, exec ...core.DBExecutor) (auth.Profile, error) {
	var prof auth.Profile
	err := repo.getExec(exec).Get(ctx, &prof, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	if err != nil {
		return auth.Profile{}, trapNoRowsErr(err, auth.ErrNotFound, "getting profile by id")
	}
	return prof, nil
}

func (repo profileRepository) GetProfileByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (auth.Profile, error) {
	var prof auth.Profile
	err := repo.getExec(exec).Get(ctx, &prof, `SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)
	if err != nil {
		return auth.Profile{}, trapNoRowsErr(err, auth.ErrNotFound, "getting profile by email")
	}
	return prof, nil
}

func (repo profileRepository) QueryProfiles(ctx context.Context, role string, exec ...core.DBExecutor) ([]auth.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles`
	var args []interface{}
	if role != "" {
		q += ` WHERE role = ?`
		args = append(args, role)
	}
	q += ` ORDER BY created_at, email`

	profiles := make([]auth.Profile, 0)
	if err := repo.getExec(exec).Select(ctx, &profiles, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return profiles, nil
}

func (repo profileRepository) UpdateProfile(ctx context.Context, prof auth.Profile, exec ...core.DBExecutor) (auth.Profile, error) {
	res, err := repo.getExec(exec).Run(ctx, `
		UPDATE profiles SET full_name = ?, metadata = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		prof.FullName, prof.Metadata, prof.PasswordHash, prof.UpdatedAt.UTC(), prof.ID,
	)
	if err != nil {
		return auth.Profile{}, errors.Wrap(err, "updating profile")
	}
	if err = checkAffected(res, auth.ErrNotFound); err != nil {
		return auth.Profile{}, err
	}
	return prof, nil
}

func (repo profileRepository) SetLastLogin(ctx context.Context, prof auth.Profile, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).Run(ctx, `UPDATE profiles SET last_login = ? WHERE id = ?`, prof.LastLogin, prof.ID)
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return checkAffected(res, auth.ErrNotFound)
}
