package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cmdouglas/adoreport/internal/model"
)

// membershipFetchConcurrency bounds the parallel per-group membership
// requests; the rate limiter still governs overall throughput.
const membershipFetchConcurrency = 4

// membershipPayload mirrors the graph memberships API response item.
type membershipPayload struct {
	ContainerDescriptor string `json:"containerDescriptor"`
	MemberDescriptor    string `json:"memberDescriptor"`
	SubjectKind         string `json:"subjectKind"`
	IsActive            *bool  `json:"isActive"`
}

// ListGroupMemberships retrieves the direct membership edges of one group.
func (c *Client) ListGroupMemberships(ctx context.Context, groupDescriptor string) ([]model.GroupMembership, error) {
	u := fmt.Sprintf("%s/_apis/graph/memberships/%s", c.orgURL(familyVssps), url.PathEscape(groupDescriptor))
	params := url.Values{
		"api-version": {apiVersionGraph},
		"direction":   {"down"},
	}

	var memberships []model.GroupMembership
	err := c.paginate(ctx, u, params, func(raw json.RawMessage) error {
		m, err := parseMembership(raw, groupDescriptor)
		if err != nil {
			c.logger.Warn("failed to parse membership", "group", groupDescriptor, "error", err)
			return nil
		}
		memberships = append(memberships, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for %s: %w", groupDescriptor, err)
	}
	return memberships, nil
}

// ListAllMemberships fetches the membership edges of every group,
// populating each group's member count and member list in place. Fetch
// failures for individual groups are logged and skipped so one broken
// group cannot sink the whole snapshot.
func (c *Client) ListAllMemberships(ctx context.Context, groups []model.Group) ([]model.GroupMembership, error) {
	var (
		mu  sync.Mutex
		all []model.GroupMembership
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(membershipFetchConcurrency)

	for i := range groups {
		group := &groups[i]
		eg.Go(func() error {
			memberships, err := c.ListGroupMemberships(ctx, group.Descriptor)
			if err != nil {
				c.logger.Warn("failed to retrieve memberships", "group", group.Descriptor, "error", err)
				return nil
			}

			group.MemberCount = len(memberships)
			group.Members = make([]string, 0, len(memberships))
			for _, m := range memberships {
				group.Members = append(group.Members, m.MemberDescriptor)
			}

			mu.Lock()
			all = append(all, memberships...)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("retrieved memberships", "count", len(all), "groups", len(groups))
	return all, nil
}

func parseMembership(raw json.RawMessage, groupDescriptor string) (model.GroupMembership, error) {
	var p membershipPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.GroupMembership{}, err
	}

	var meta model.Metadata
	_ = json.Unmarshal(raw, &meta)

	container := strings.TrimSpace(p.ContainerDescriptor)
	if container == "" {
		container = groupDescriptor
	}

	m := model.GroupMembership{
		GroupDescriptor:  container,
		MemberDescriptor: strings.TrimSpace(p.MemberDescriptor),
		MemberType:       model.ParseSubjectKind(p.SubjectKind),
		IsActive:         p.IsActive,
		Metadata:         meta,
	}
	if err := m.Validate(); err != nil {
		return model.GroupMembership{}, err
	}
	return m, nil
}
