package database

import (
	"context"

	"github.com/google/uuid"
)

// ProductStocks returns current stock keyed by product id string. Ids that
// are not UUIDs or have no product row are absent from the result.
func (q *Queries) ProductStocks(ctx context.Context, productIDs []string) (map[string]int32, error) {
	ids := make([]uuid.UUID, 0, len(productIDs))
	for _, s := range productIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	out := make(map[string]int32, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.ListProductStocks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID.String()] = r.Stock
	}
	return out, nil
}
