package repo

import (
	"github.com/keelvcs/keel/pkg/object"
)

// Repo represents an opened Keel repository.
type Repo struct {
	RootDir string        // working directory root
	KeelDir string        // .keel/ directory
	Config  *Config       // repository settings read at open time
	Store   *object.Store // content-addressed object store
}

// Algorithm returns the hash algorithm the repository was initialized with.
func (r *Repo) Algorithm() object.Algorithm {
	return r.Store.Algorithm()
}
