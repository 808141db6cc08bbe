package inmemdb

import (
	"context"
	"strings"

	"github.com/jeevaneswaran/examportal/core/profile"
)

type profileRepository struct {
	db *profileTable
}

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) query() []profile.Profile {
	profiles := make([]profile.Profile, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		profiles = append(profiles, *p)
	}
	return profiles
}

func (repo *profileRepository) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[p.ID]; ok {
		return profile.Profile{}, profile.ErrProfileExists
	}
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, p profile.Profile, isApproved *bool) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	orig, ok := repo.db.table[p.ID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	if p.FirstName != "" {
		orig.FirstName = p.FirstName
	}
	if p.LastName != "" {
		orig.LastName = p.LastName
	}
	if p.ContactNumber.Valid {
		orig.ContactNumber = p.ContactNumber
	}
	if p.Address.Valid {
		orig.Address = p.Address
	}
	if p.AvatarURL.Valid {
		orig.AvatarURL = p.AvatarURL
	}
	if isApproved != nil {
		orig.IsApproved = *isApproved
	}
	orig.UpdatedAt = p.UpdatedAt

	repo.db.table[p.ID] = orig
	return *orig, nil
}

func (repo *profileRepository) FilterProfiles(ctx context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]profile.Profile, 0)
	for _, p := range repo.query() {
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if filter.IsApproved != nil && p.IsApproved != *filter.IsApproved {
			continue
		}
		if filter.Search != "" && !matchesSearch(p, filter.Search) {
			continue
		}
		matches = append(matches, p)
	}
	return matches, nil
}

func matchesSearch(p profile.Profile, search string) bool {
	search = strings.ToLower(search)
	for _, fld := range []string{p.FirstName, p.LastName, p.Email} {
		if strings.Contains(strings.ToLower(fld), search) {
			return true
		}
	}
	return false
}
