package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hotelops/stockpilot/internal/core/domain"
)

// CreateAudit files an audit record with the remote service. The core
// only issues the creation call; audit workflow beyond that is the
// service's business.
func (c *Client) CreateAudit(ctx context.Context, rec *domain.AuditRecord) error {
	if err := c.do(ctx, http.MethodPost, "/audits", rec, nil, nil); err != nil {
		return fmt.Errorf("create audit record: %w", err)
	}
	return nil
}
