package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cmdouglas/adoreport/internal/model"
)

// groupPayload mirrors the graph groups API response item.
type groupPayload struct {
	Descriptor      string `json:"descriptor"`
	DisplayName     string `json:"displayName"`
	PrincipalName   string `json:"principalName"`
	MailAddress     string `json:"mailAddress"`
	Domain          string `json:"domain"`
	Origin          string `json:"origin"`
	OriginID        string `json:"originId"`
	SecurityID      string `json:"securityId"`
	IsSecurityGroup bool   `json:"isSecurityGroup"`
	IsActive        *bool  `json:"isActive"`
}

// ListGroups retrieves every group in the organization. The group type is
// derived from the origin string; member counts are filled in later by the
// membership fetch.
func (c *Client) ListGroups(ctx context.Context) ([]model.Group, error) {
	u := fmt.Sprintf("%s/_apis/graph/groups", c.orgURL(familyVssps))
	params := url.Values{"api-version": {apiVersionGraph}}

	var groups []model.Group
	err := c.paginate(ctx, u, params, func(raw json.RawMessage) error {
		group, err := parseGroup(raw)
		if err != nil {
			c.logger.Warn("failed to parse group", "error", err)
			return nil
		}
		groups = append(groups, group)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	c.logger.Info("retrieved groups", "count", len(groups))
	return groups, nil
}

func parseGroup(raw json.RawMessage) (model.Group, error) {
	var p groupPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Group{}, err
	}

	var meta model.Metadata
	_ = json.Unmarshal(raw, &meta)

	group := model.Group{
		Descriptor:      strings.TrimSpace(p.Descriptor),
		DisplayName:     strings.TrimSpace(p.DisplayName),
		PrincipalName:   strings.TrimSpace(p.PrincipalName),
		MailAddress:     strings.TrimSpace(p.MailAddress),
		SubjectKind:     model.SubjectKindGroup,
		GroupType:       model.GroupTypeFromOrigin(p.Origin),
		Domain:          strings.TrimSpace(p.Domain),
		Origin:          strings.TrimSpace(p.Origin),
		OriginID:        strings.TrimSpace(p.OriginID),
		SecurityID:      strings.TrimSpace(p.SecurityID),
		IsSecurityGroup: p.IsSecurityGroup,
		IsActive:        p.IsActive,
		Metadata:        meta,
	}
	if err := group.Validate(); err != nil {
		return model.Group{}, err
	}
	return group, nil
}
