package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cmdouglas/adoreport/internal/model"
)

const apiVersionEntitlements = "7.1-preview.3"

// entitlementPayload mirrors the user entitlements API response.
type entitlementPayload struct {
	User struct {
		Descriptor string `json:"descriptor"`
	} `json:"user"`
	AccessLevel struct {
		AccountLicenseType string `json:"accountLicenseType"`
		LicensingSource    string `json:"licensingSource"`
		MsdnLicenseType    string `json:"msdnLicenseType"`
		LicenseDisplayName string `json:"licenseDisplayName"`
		AssignmentSource   string `json:"assignmentSource"`
	} `json:"accessLevel"`
	DateCreated      string `json:"dateCreated"`
	LastAccessedDate string `json:"lastAccessedDate"`
	ProjectEntitlements []struct {
		ProjectRef struct {
			ID string `json:"id"`
		} `json:"projectRef"`
	} `json:"projectEntitlements"`
	GroupAssignments []struct {
		Group struct {
			Descriptor string `json:"descriptor"`
		} `json:"group"`
	} `json:"groupAssignments"`
}

// GetUserEntitlement retrieves the entitlement for one user ID or
// descriptor. A 404 means the user simply has no entitlement and returns
// (nil, nil).
func (c *Client) GetUserEntitlement(ctx context.Context, userID string) (*model.Entitlement, error) {
	u := fmt.Sprintf("%s/_apis/userentitlements/%s", c.orgURL(familyVsaex), url.PathEscape(userID))
	params := url.Values{"api-version": {apiVersionEntitlements}}

	var raw json.RawMessage
	if err := c.getJSON(ctx, u, params, &raw); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entitlement for %s: %w", userID, err)
	}

	ent, err := c.parseEntitlement(raw)
	if err != nil {
		return nil, err
	}
	return ent, nil
}

// ListEntitlements looks up entitlements for the given users one by one,
// as the entitlements API has no list endpoint keyed by descriptor.
// Built-in and service identities are skipped since they carry no
// entitlement; individual lookup failures are logged and skipped.
func (c *Client) ListEntitlements(ctx context.Context, users []model.User) ([]model.Entitlement, error) {
	var entitlements []model.Entitlement
	skipped, failed := 0, 0

	for i := range users {
		user := &users[i]
		if user.IsBuiltIn() {
			skipped++
			continue
		}

		userID := user.Descriptor
		if userID == "" {
			userID = user.OriginID
		}
		if userID == "" {
			c.logger.Debug("skipping user with no descriptor or origin id", "user", user.DisplayName)
			continue
		}

		ent, err := c.GetUserEntitlement(ctx, userID)
		if err != nil {
			failed++
			c.logger.Warn("failed to retrieve entitlement", "user", user.DisplayName, "error", err)
			continue
		}
		if ent == nil && userID == user.Descriptor && user.OriginID != "" {
			// Some identities only resolve by origin ID.
			ent, err = c.GetUserEntitlement(ctx, user.OriginID)
			if err != nil {
				failed++
				c.logger.Warn("failed to retrieve entitlement", "user", user.DisplayName, "error", err)
				continue
			}
		}
		if ent == nil {
			c.logger.Debug("no entitlement found", "user", user.DisplayName)
			continue
		}
		entitlements = append(entitlements, *ent)
	}

	c.logger.Info("retrieved entitlements",
		"count", len(entitlements),
		"users", len(users),
		"skipped_service_accounts", skipped,
		"failures", failed)
	return entitlements, nil
}

func (c *Client) parseEntitlement(raw json.RawMessage) (*model.Entitlement, error) {
	var p entitlementPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse entitlement: %w", err)
	}

	var meta model.Metadata
	_ = json.Unmarshal(raw, &meta)

	src, ok := model.ParseLicensingSource(p.AccessLevel.LicensingSource)
	if !ok {
		c.logger.Warn("unknown licensing source", "value", p.AccessLevel.LicensingSource)
	}
	msdn, ok := model.ParseMsdnLicenseType(p.AccessLevel.MsdnLicenseType)
	if !ok {
		c.logger.Warn("unknown msdn license type", "value", p.AccessLevel.MsdnLicenseType)
	}

	level := model.ClassifyAccessLevel(p.AccessLevel.AccountLicenseType, src, msdn)
	if level == model.AccessLevelNone {
		c.logger.Debug("unmapped access level combination",
			"account_license_type", p.AccessLevel.AccountLicenseType,
			"licensing_source", p.AccessLevel.LicensingSource,
			"msdn_license_type", p.AccessLevel.MsdnLicenseType)
	}

	var projects []string
	for _, pe := range p.ProjectEntitlements {
		if pe.ProjectRef.ID != "" {
			projects = append(projects, pe.ProjectRef.ID)
		}
	}
	var assignments []string
	for _, ga := range p.GroupAssignments {
		if ga.Group.Descriptor != "" {
			assignments = append(assignments, ga.Group.Descriptor)
		}
	}

	ent := &model.Entitlement{
		UserDescriptor:      strings.TrimSpace(p.User.Descriptor),
		AccessLevel:         level,
		LicenseDisplayName:  strings.TrimSpace(p.AccessLevel.LicenseDisplayName),
		AccountLicenseType:  strings.TrimSpace(p.AccessLevel.AccountLicenseType),
		LicensingSource:     src,
		MsdnLicenseType:     msdn,
		AssignmentSource:    strings.TrimSpace(p.AccessLevel.AssignmentSource),
		DateCreated:         parseTimestamp(p.DateCreated),
		LastAccessedDate:    parseTimestamp(p.LastAccessedDate),
		ProjectEntitlements: projects,
		GroupAssignments:    assignments,
		Metadata:            meta,
	}
	if err := ent.Validate(); err != nil {
		return nil, err
	}
	return ent, nil
}

// parseTimestamp parses an API timestamp, tolerating missing fractional
// seconds. The API's zero date (0001-01-01) is treated as absent.
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			if t.IsZero() || t.Year() <= 1 {
				return nil
			}
			return &t
		}
	}
	return nil
}
