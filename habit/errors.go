package habit

import (
	"errors"
	"fmt"
)

// ErrEmptyName is returned by Add for a blank habit name.
var ErrEmptyName = errors.New("habit name is empty")

// MissingMemberError reports an id listed in the index with no stored value.
// It signals index/store inconsistency, not a legitimately absent habit.
type MissingMemberError struct {
	ID string
}

func (e *MissingMemberError) Error() string {
	return fmt.Sprintf("no habit found with id: %s", e.ID)
}

// IsMissingMember reports whether err is (or wraps) a *MissingMemberError.
func IsMissingMember(err error) bool {
	if err == nil {
		return false
	}
	var me *MissingMemberError
	return errors.As(err, &me)
}
