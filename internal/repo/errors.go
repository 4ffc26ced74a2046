package repo

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrReferentialIntegrity matches every *ReferentialIntegrityError via errors.Is.
	ErrReferentialIntegrity = errors.New("referential integrity violation")
)

// ReferentialIntegrityError — операция нарушила бы уникальность или оставила
// бы висячие ссылки. Операция не применяется.
type ReferentialIntegrityError struct {
	Entity string
	Key    string
	Reason string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Key, e.Reason)
}

func (e *ReferentialIntegrityError) Is(target error) bool { return target == ErrReferentialIntegrity }

func integrity(entity string, key any, format string, args ...any) error {
	return &ReferentialIntegrityError{Entity: entity, Key: fmt.Sprint(key), Reason: fmt.Sprintf(format, args...)}
}

// notFound maps gorm's record-not-found onto ErrNotFound with some context.
func notFound(err error, entity string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", entity, key, ErrNotFound)
	}
	return err
}
