package validate

import (
	"fmt"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

// ExistsFunc reports whether name already names an active sibling.
type ExistsFunc func(name string) (bool, error)

// Outcome is the result of applying a ConflictStrategy.
type Outcome struct {
	// FinalName is the name to actually use.
	FinalName string
	// Skip is true when ConflictSkip resolved a collision — callers must
	// treat the command as a no-op and return the existing entity.
	Skip bool
	// Overwrite is true when ConflictOverwrite resolved a collision on a
	// file — callers must replace the existing file's content/metadata.
	Overwrite bool
}

// ResolveConflict applies strategy to a requested name, consulting exists
// to detect collisions against active siblings, per spec.md §4.5 step 3.
// RENAME appends " (N)" with a monotonically increasing N until a free name
// is found. OVERWRITE is only valid for files; callers must check that.
func ResolveConflict(name string, strategy model.ConflictStrategy, exists ExistsFunc) (Outcome, error) {
	collides, err := exists(name)
	if err != nil {
		return Outcome{}, err
	}
	if !collides {
		return Outcome{FinalName: name}, nil
	}

	switch strategy {
	case model.ConflictError, "":
		return Outcome{}, errkind.Conflict(fmt.Sprintf("an active entry named %q already exists", name))
	case model.ConflictSkip:
		return Outcome{FinalName: name, Skip: true}, nil
	case model.ConflictOverwrite:
		return Outcome{FinalName: name, Overwrite: true}, nil
	case model.ConflictRename:
		base, ext := splitNameExt(name)
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
			collides, err := exists(candidate)
			if err != nil {
				return Outcome{}, err
			}
			if !collides {
				return Outcome{FinalName: candidate}, nil
			}
		}
	default:
		return Outcome{}, errkind.Validation("unknown conflict strategy: " + string(strategy))
	}
}

func splitNameExt(name string) (base, ext string) {
	ext = extension(name)
	base = name[:len(name)-len(ext)]
	return base, ext
}
