package model

import (
	"time"

	"github.com/google/uuid"
)

// Currency is administrative reference data; rows are seeded, never created
// by end users.
type Currency struct {
	ID        uuid.UUID `db:"id"`
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	Symbol    string    `db:"symbol"`
	Decimals  int       `db:"decimals"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}
