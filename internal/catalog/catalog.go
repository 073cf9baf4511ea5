package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/model"
)

// Catalog holds the status and type vocabularies in memory. Operations work
// with typed constants; storage ids appear only at the persistence boundary.
// Loaded once at startup; a missing row is a seeding integrity failure.
type Catalog struct {
	statusIDByCode map[model.TransactionStatus]uuid.UUID
	statusCodeByID map[uuid.UUID]model.TransactionStatus
	typeIDByCode   map[model.TransactionType]uuid.UUID
	typeCodeByID   map[uuid.UUID]model.TransactionType
}

var requiredStatuses = []model.TransactionStatus{
	model.StatusPending, model.StatusProcessing, model.StatusCompleted, model.StatusFailed,
}

var requiredTypes = []model.TransactionType{
	model.TypeDeposit, model.TypeWithdraw, model.TypeSend, model.TypeSwap, model.TypeReceive,
}

// New builds a catalog from explicit mappings; used by tests and by Load.
func New(statuses map[model.TransactionStatus]uuid.UUID, types map[model.TransactionType]uuid.UUID) *Catalog {
	c := &Catalog{
		statusIDByCode: make(map[model.TransactionStatus]uuid.UUID, len(statuses)),
		statusCodeByID: make(map[uuid.UUID]model.TransactionStatus, len(statuses)),
		typeIDByCode:   make(map[model.TransactionType]uuid.UUID, len(types)),
		typeCodeByID:   make(map[uuid.UUID]model.TransactionType, len(types)),
	}
	for code, id := range statuses {
		c.statusIDByCode[code] = id
		c.statusCodeByID[id] = code
	}
	for code, id := range types {
		c.typeIDByCode[code] = id
		c.typeCodeByID[id] = code
	}
	return c
}

// Load reads both catalogs and verifies every required code is present.
func Load(ctx context.Context, db *sqlx.DB) (*Catalog, error) {
	const op = "catalog.Load"

	type row struct {
		ID   uuid.UUID `db:"id"`
		Code string    `db:"code"`
	}

	var statusRows []row
	if err := db.SelectContext(ctx, &statusRows, `SELECT id, code FROM transaction_statuses`); err != nil {
		return nil, errors.NewInternal(op, err)
	}
	var typeRows []row
	if err := db.SelectContext(ctx, &typeRows, `SELECT id, code FROM transaction_types`); err != nil {
		return nil, errors.NewInternal(op, err)
	}

	statuses := make(map[model.TransactionStatus]uuid.UUID, len(statusRows))
	for _, r := range statusRows {
		statuses[model.TransactionStatus(r.Code)] = r.ID
	}
	types := make(map[model.TransactionType]uuid.UUID, len(typeRows))
	for _, r := range typeRows {
		types[model.TransactionType(r.Code)] = r.ID
	}

	for _, s := range requiredStatuses {
		if _, ok := statuses[s]; !ok {
			return nil, errors.NewNotFound(op, fmt.Sprintf("transaction status %q", s))
		}
	}
	for _, t := range requiredTypes {
		if _, ok := types[t]; !ok {
			return nil, errors.NewNotFound(op, fmt.Sprintf("transaction type %q", t))
		}
	}

	return New(statuses, types), nil
}

func (c *Catalog) StatusID(s model.TransactionStatus) (uuid.UUID, error) {
	id, ok := c.statusIDByCode[s]
	if !ok {
		return uuid.Nil, errors.NewNotFound("catalog.StatusID", fmt.Sprintf("transaction status %q", s))
	}
	return id, nil
}

func (c *Catalog) TypeID(t model.TransactionType) (uuid.UUID, error) {
	id, ok := c.typeIDByCode[t]
	if !ok {
		return uuid.Nil, errors.NewNotFound("catalog.TypeID", fmt.Sprintf("transaction type %q", t))
	}
	return id, nil
}

func (c *Catalog) StatusCode(id uuid.UUID) (model.TransactionStatus, bool) {
	s, ok := c.statusCodeByID[id]
	return s, ok
}

func (c *Catalog) TypeCode(id uuid.UUID) (model.TransactionType, bool) {
	t, ok := c.typeCodeByID[id]
	return t, ok
}
