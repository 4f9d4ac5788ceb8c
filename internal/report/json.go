package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cmdouglas/adoreport/internal/model"
)

// The JSON document is a stable external contract consumed by downstream
// billing tooling, so it is laid out explicitly here rather than derived
// from the internal model's struct tags.

type jsonDocument struct {
	Metadata        jsonMetadata                     `json:"metadata"`
	LicenseAnalysis jsonLicenseAnalysis              `json:"license_analysis"`
	Chargeback      map[string]model.ChargebackGroup `json:"chargeback_analysis"`
	UserSummaries   []jsonUserSummary                `json:"user_summaries"`
	OrphanedGroups  []jsonOrphanedGroup              `json:"orphaned_groups"`
}

type jsonMetadata struct {
	Organization     string   `json:"organization"`
	GeneratedAt      string   `json:"generated_at"`
	TotalUsers       int      `json:"total_users"`
	TotalGroups      int      `json:"total_groups"`
	TotalEntitlements int     `json:"total_entitlements"`
	TotalLicenseCost *float64 `json:"total_license_cost"`
}

type jsonLicenseAnalysis struct {
	LicensesByType map[string]int `json:"licenses_by_type"`
	GroupsByType   map[string]int `json:"groups_by_type"`
}

type jsonUserSummary struct {
	User        jsonUser        `json:"user"`
	Entitlement jsonEntitlement `json:"entitlement"`
	Groups      jsonGroups      `json:"groups"`
	LastUpdated string          `json:"last_updated"`
}

type jsonUser struct {
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	UniqueName    string `json:"unique_name"`
	PrincipalName string `json:"principal_name"`
	OriginID      string `json:"origin_id"`
	Descriptor    string `json:"descriptor"`
	Origin        string `json:"origin"`
	Domain        string `json:"domain"`
	IsActive      *bool  `json:"is_active"`
}

type jsonEntitlement struct {
	AccessLevel        string   `json:"access_level"`
	LicenseDisplayName *string  `json:"license_display_name"`
	LicenseCost        *float64 `json:"license_cost"`
	LastAccessed       *string  `json:"last_accessed"`
}

type jsonGroups struct {
	DirectGroups     []string `json:"direct_groups"`
	AllGroups        []string `json:"all_groups"`
	ChargebackGroups []string `json:"chargeback_groups"`
}

type jsonOrphanedGroup struct {
	DisplayName string `json:"display_name"`
	GroupType   string `json:"group_type"`
	Origin      string `json:"origin"`
	MemberCount int    `json:"member_count"`
}

// GenerateJSONReport writes the complete report as one JSON document.
func (w *Writer) GenerateJSONReport(r *model.OrganizationReport) (string, error) {
	path := w.filename(r.Organization+"_complete_report", ".json", r.GeneratedAt)
	w.logger.Debug("generating JSON report", "path", path)

	doc := buildJSONDocument(r)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	w.logger.Info("generated JSON report", "path", path)
	return path, nil
}

func buildJSONDocument(r *model.OrganizationReport) jsonDocument {
	doc := jsonDocument{
		Metadata: jsonMetadata{
			Organization:      r.Organization,
			GeneratedAt:       r.GeneratedAt.Format(time.RFC3339),
			TotalUsers:        r.TotalUsers,
			TotalGroups:       r.TotalGroups,
			TotalEntitlements: r.TotalEntitlements,
			TotalLicenseCost:  r.TotalLicenseCost,
		},
		LicenseAnalysis: jsonLicenseAnalysis{
			LicensesByType: r.LicensesByType,
			GroupsByType:   r.GroupsByType,
		},
		Chargeback:     r.ChargebackByGroup,
		UserSummaries:  make([]jsonUserSummary, 0, len(r.UserSummaries)),
		OrphanedGroups: make([]jsonOrphanedGroup, 0, len(r.OrphanedGroups)),
	}

	for _, s := range r.UserSummaries {
		entitlement := jsonEntitlement{
			AccessLevel: string(s.EffectiveAccessLevel),
			LicenseCost: s.LicenseCost,
		}
		if s.Entitlement != nil {
			name := s.Entitlement.LicenseDisplayName
			entitlement.LicenseDisplayName = &name
			if s.Entitlement.LastAccessedDate != nil {
				accessed := s.Entitlement.LastAccessedDate.Format(time.RFC3339)
				entitlement.LastAccessed = &accessed
			}
		}

		doc.UserSummaries = append(doc.UserSummaries, jsonUserSummary{
			User: jsonUser{
				DisplayName:   s.User.DisplayName,
				Email:         s.User.MailAddress,
				UniqueName:    s.User.UniqueName,
				PrincipalName: s.User.PrincipalName,
				OriginID:      s.User.OriginID,
				Descriptor:    s.User.Descriptor,
				Origin:        s.User.Origin,
				Domain:        s.User.Domain,
				IsActive:      s.User.IsActive,
			},
			Entitlement: entitlement,
			Groups: jsonGroups{
				DirectGroups:     groupNames(s.DirectGroups),
				AllGroups:        groupNames(s.AllGroups),
				ChargebackGroups: s.ChargebackGroups,
			},
			LastUpdated: s.LastUpdated.Format(time.RFC3339),
		})
	}

	for _, g := range r.OrphanedGroups {
		doc.OrphanedGroups = append(doc.OrphanedGroups, jsonOrphanedGroup{
			DisplayName: g.DisplayName,
			GroupType:   string(g.GroupType),
			Origin:      g.Origin,
			MemberCount: g.MemberCount,
		})
	}

	return doc
}
