package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
)

// FetchItems returns the remote item snapshots.
func (c *Client) FetchItems(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, &items, nil); err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	return items, nil
}

// FetchItem returns one remote item snapshot.
func (c *Client) FetchItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if err := c.do(ctx, http.MethodGet, "/items/"+id, nil, &item, nil); err != nil {
		return nil, fmt.Errorf("fetch item %s: %w", id, err)
	}
	return &item, nil
}

// PushStock writes an item's stock level remotely under the versioned
// write contract: the expected version rides in If-Match, a nil
// expectedVersion bypasses the precondition, and a failed precondition
// comes back as *storage.VersionConflictError.
func (c *Client) PushStock(
	ctx context.Context,
	id string,
	quantity int,
	expectedVersion *int64,
) (*domain.Item, error) {
	header := http.Header{}
	if expectedVersion != nil {
		header.Set("If-Match", strconv.FormatInt(*expectedVersion, 10))
	}

	var item domain.Item
	err := c.do(ctx, http.MethodPut, "/items/"+id+"/stock", map[string]int{
		"quantity": quantity,
	}, &item, header)
	if err != nil {
		return nil, fmt.Errorf("push stock for item %s: %w", id, err)
	}
	return &item, nil
}

// conflictPayload is the service's 409 response body.
type conflictPayload struct {
	Code            string `json:"code"`
	ItemID          string `json:"item_id"`
	ExpectedVersion int64  `json:"expected_version"`
	ActualVersion   int64  `json:"actual_version"`
	ConflictData    struct {
		ActualStock       int                   `json:"actual_stock"`
		ConcurrentUpdates []*domain.StockUpdate `json:"concurrent_updates"`
	} `json:"conflict_data"`
}

// decodeConflict maps a 409 body onto the shared conflict error type,
// so local and remote version conflicts resolve through the same path.
// Returns nil when the body isn't a version conflict.
func decodeConflict(raw []byte) error {
	var payload conflictPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	if payload.Code != "version_conflict" {
		return nil
	}
	return &storage.VersionConflictError{
		ItemID:            payload.ItemID,
		ExpectedVersion:   payload.ExpectedVersion,
		ActualVersion:     payload.ActualVersion,
		ActualStock:       payload.ConflictData.ActualStock,
		ConcurrentUpdates: payload.ConflictData.ConcurrentUpdates,
	}
}
