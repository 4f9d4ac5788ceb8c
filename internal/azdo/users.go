package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/cmdouglas/adoreport/internal/model"
)

// userPayload mirrors the graph users API response item.
type userPayload struct {
	Descriptor    string `json:"descriptor"`
	DisplayName   string `json:"displayName"`
	UniqueName    string `json:"uniqueName"`
	PrincipalName string `json:"principalName"`
	MailAddress   string `json:"mailAddress"`
	SubjectKind   string `json:"subjectKind"`
	Domain        string `json:"domain"`
	Origin        string `json:"origin"`
	OriginID      string `json:"originId"`
	IsActive      *bool  `json:"isActive"`
}

// ListUsers retrieves every user in the organization. Items that fail to
// parse or validate are logged and skipped rather than aborting the fetch.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	u := fmt.Sprintf("%s/_apis/graph/users", c.orgURL(familyVssps))
	params := url.Values{"api-version": {apiVersionGraph}}

	var users []model.User
	err := c.paginate(ctx, u, params, func(raw json.RawMessage) error {
		user, err := parseUser(raw)
		if err != nil {
			c.logger.Warn("failed to parse user", "error", err)
			return nil
		}
		users = append(users, user)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	c.logger.Info("retrieved users", "count", len(users))
	return users, nil
}

func parseUser(raw json.RawMessage) (model.User, error) {
	var p userPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.User{}, err
	}

	var meta model.Metadata
	_ = json.Unmarshal(raw, &meta)

	user := model.User{
		Descriptor:    strings.TrimSpace(p.Descriptor),
		DisplayName:   strings.TrimSpace(p.DisplayName),
		UniqueName:    strings.TrimSpace(p.UniqueName),
		PrincipalName: strings.TrimSpace(p.PrincipalName),
		MailAddress:   strings.TrimSpace(p.MailAddress),
		SubjectKind:   model.SubjectKindUser,
		Domain:        strings.TrimSpace(p.Domain),
		Origin:        strings.TrimSpace(p.Origin),
		OriginID:      strings.TrimSpace(p.OriginID),
		IsActive:      p.IsActive,
		Metadata:      meta,
	}
	if err := user.Validate(); err != nil {
		return model.User{}, err
	}
	return user, nil
}
