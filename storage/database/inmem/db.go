package inmemdb

import (
	"sync"

	"github.com/jeevaneswaran/examportal/core/profile"
)

type profileTable struct {
	mutex sync.RWMutex
	table map[string]*profile.Profile
}

type DB struct {
	profile *profileTable
}

func Open() (*DB, error) {
	return &DB{
		profile: &profileTable{table: make(map[string]*profile.Profile)},
	}, nil
}
