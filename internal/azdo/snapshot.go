package azdo

import (
	"context"
	"fmt"

	"github.com/cmdouglas/adoreport/internal/model"
)

// FetchSnapshot retrieves the organization's complete dataset: users,
// groups, entitlements and membership edges. Membership fetching also
// fills each group's member count.
func (c *Client) FetchSnapshot(ctx context.Context) (*model.Snapshot, error) {
	c.logger.Info("fetching organization snapshot", "organization", c.creds.Organization)

	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	groups, err := c.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	entitlements, err := c.ListEntitlements(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	memberships, err := c.ListAllMemberships(ctx, groups)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	return &model.Snapshot{
		Organization: c.creds.Organization,
		Users:        users,
		Groups:       groups,
		Entitlements: entitlements,
		Memberships:  memberships,
	}, nil
}
