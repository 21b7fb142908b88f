package core

import (
	"context"
	"database/sql"
	"errors"

	"github.com/layerline/layerline/internal/db"
)

// StoreCatalog resolves model references from the product_models table.
type StoreCatalog struct{}

func (c *StoreCatalog) Resolve(ctx context.Context, tenantID, modelRef string) (Requirements, error) {
	model, err := db.Models.GetModelByRef(ctx, tenantID, modelRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Requirements{}, ErrUnknownModel
		}
		return Requirements{}, err
	}
	return Requirements{
		Bounds:    Volume{X: model.BoundXMM, Y: model.BoundYMM, Z: model.BoundZMM},
		Materials: decodeMaterials(model.MaterialsJSON),
	}, nil
}
