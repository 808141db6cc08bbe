package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jeevaneswaran/examportal/core/profile"
)

const uniqueViolation = "23505"

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo profileRepository) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile
	err := repo.db.GetContext(ctx, &p, `SELECT * FROM profile WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "getting profile")
	}
	return p, nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO profile (id, email, role, is_approved, first_name, last_name,
		                     contact_number, address, avatar_url, created_at, updated_at)
		VALUES (:id, :email, :role, :is_approved, :first_name, :last_name,
		        :contact_number, :address, :avatar_url, :created_at, :updated_at)`,
		p,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return profile.Profile{}, profile.ErrProfileExists
		}
		return profile.Profile{}, errors.Wrap(err, "creating profile")
	}
	return p, nil
}

func (repo profileRepository) UpdateProfile(ctx context.Context, p profile.Profile, isApproved *bool) (profile.Profile, error) {
	// only save set fields
	sets := []string{"updated_at = :updated_at"}
	args := map[string]interface{}{
		"id":         p.ID,
		"updated_at": p.UpdatedAt,
	}
	if p.FirstName != "" {
		sets = append(sets, "first_name = :first_name")
		args["first_name"] = p.FirstName
	}
	if p.LastName != "" {
		sets = append(sets, "last_name = :last_name")
		args["last_name"] = p.LastName
	}
	if p.ContactNumber.Valid {
		sets = append(sets, "contact_number = :contact_number")
		args["contact_number"] = p.ContactNumber
	}
	if p.Address.Valid {
		sets = append(sets, "address = :address")
		args["address"] = p.Address
	}
	if p.AvatarURL.Valid {
		sets = append(sets, "avatar_url = :avatar_url")
		args["avatar_url"] = p.AvatarURL
	}
	if isApproved != nil {
		sets = append(sets, "is_approved = :is_approved")
		args["is_approved"] = *isApproved
	}

	query := `UPDATE profile SET ` + strings.Join(sets, ", ") + ` WHERE id = :id RETURNING *`
	rows, err := sqlx.NamedQueryContext(ctx, repo.db, query, args)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "updating profile")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return profile.Profile{}, profile.ErrNotFound
	}
	var updated profile.Profile
	if err = rows.StructScan(&updated); err != nil {
		return profile.Profile{}, errors.Wrap(err, "scanning updated profile")
	}
	return updated, rows.Err()
}

func (repo profileRepository) FilterProfiles(ctx context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	where := make([]string, 0, 3)
	args := map[string]interface{}{}

	if filter.Role != "" {
		where = append(where, "role = :role")
		args["role"] = filter.Role
	}
	if filter.IsApproved != nil {
		where = append(where, "is_approved = :is_approved")
		args["is_approved"] = *filter.IsApproved
	}
	if filter.Search != "" {
		where = append(where, "(first_name ILIKE :search OR last_name ILIKE :search OR email ILIKE :search)")
		args["search"] = "%" + filter.Search + "%"
	}

	query := `SELECT * FROM profile`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at`

	rows, err := sqlx.NamedQueryContext(ctx, repo.db, query, args)
	if err != nil {
		return nil, errors.Wrap(err, "filtering profiles")
	}
	defer func() { _ = rows.Close() }()

	profiles := make([]profile.Profile, 0)
	for rows.Next() {
		var p profile.Profile
		if err = rows.StructScan(&p); err != nil {
			return nil, errors.Wrap(err, "scanning profile")
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
