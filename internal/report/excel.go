package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/cmdouglas/adoreport/internal/model"
)

// GenerateExcelReport writes a five-sheet workbook: summary, user details,
// chargeback analysis, group analysis and license analysis.
func (w *Writer) GenerateExcelReport(r *model.OrganizationReport) (string, error) {
	path := w.filename(r.Organization+"_report", ".xlsx", r.GeneratedAt)
	w.logger.Debug("generating Excel report", "path", path)

	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name  string
		build func(*excelize.File, string, *model.OrganizationReport) error
	}{
		{"Summary", buildSummarySheet},
		{"User Details", buildUserDetailsSheet},
		{"Chargeback Analysis", buildChargebackSheet},
		{"Group Analysis", buildGroupAnalysisSheet},
		{"License Analysis", buildLicenseAnalysisSheet},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return "", err
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return "", err
			}
		}
		if err := sheet.build(f, sheet.name, r); err != nil {
			return "", fmt.Errorf("failed to build sheet %s: %w", sheet.name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}

	w.logger.Info("generated Excel report", "path", path)
	return path, nil
}

// setRows writes a header row followed by data rows starting at A1.
func setRows(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func buildSummarySheet(f *excelize.File, sheet string, r *model.OrganizationReport) error {
	totalCost := "N/A"
	if r.TotalLicenseCost != nil {
		totalCost = fmt.Sprintf("$%.2f", *r.TotalLicenseCost)
	}

	rows := [][]any{
		{"Organization", r.Organization},
		{"Report Generated", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Total Users", r.TotalUsers},
		{"Total Groups", r.TotalGroups},
		{"Total Entitlements", r.TotalEntitlements},
		{"Total License Cost", totalCost},
		{""},
		{"License Distribution", ""},
	}
	for _, licenseType := range sortedKeys(r.LicensesByType) {
		rows = append(rows, []any{"  " + titleize(licenseType), r.LicensesByType[licenseType]})
	}
	rows = append(rows, []any{""}, []any{"Group Type Distribution", ""})
	for _, groupType := range sortedKeys(r.GroupsByType) {
		rows = append(rows, []any{"  " + titleize(groupType), r.GroupsByType[groupType]})
	}

	return setRows(f, sheet, []any{"Metric", "Value"}, rows)
}

func buildUserDetailsSheet(f *excelize.File, sheet string, r *model.OrganizationReport) error {
	header := []any{
		"Organization", "User Name", "Email", "Principal Name", "Unique Name",
		"Origin ID", "Descriptor", "Origin", "Domain", "Access Level",
		"License Display Name", "Is Active", "Direct Groups Count",
		"Total Groups Count", "Chargeback Groups", "License Cost", "Last Accessed",
	}

	rows := make([][]any, 0, len(r.UserSummaries))
	for _, s := range r.UserSummaries {
		license, lastAccessed := "", ""
		if s.Entitlement != nil {
			license = s.Entitlement.LicenseDisplayName
			lastAccessed = dateOrEmpty(s.Entitlement.LastAccessedDate)
		}
		rows = append(rows, []any{
			r.Organization,
			s.User.DisplayName,
			s.User.MailAddress,
			s.User.PrincipalName,
			s.User.UniqueName,
			s.User.OriginID,
			s.User.Descriptor,
			s.User.Origin,
			s.User.Domain,
			string(s.EffectiveAccessLevel),
			license,
			yesNo(s.User.IsActive),
			len(s.DirectGroups),
			len(s.AllGroups),
			joinSemicolon(s.ChargebackGroups),
			costOrZero(s.LicenseCost),
			lastAccessed,
		})
	}

	return setRows(f, sheet, header, rows)
}

func buildChargebackSheet(f *excelize.File, sheet string, r *model.OrganizationReport) error {
	header := []any{
		"Group Name", "Total Users", "Basic Licenses", "Stakeholder Licenses",
		"VS Subscriber Licenses", "VS Enterprise Licenses", "Total Cost", "Cost Per User",
	}

	var rows [][]any
	for _, name := range sortedKeys(r.ChargebackByGroup) {
		g := r.ChargebackByGroup[name]
		costPerUser := 0.0
		if g.TotalUsers > 0 {
			costPerUser = g.TotalCost / float64(g.TotalUsers)
		}
		rows = append(rows, []any{
			name,
			g.TotalUsers,
			g.Licenses["Basic"] + g.Licenses[string(model.AccessLevelBasic)],
			g.Licenses["Stakeholder"] + g.Licenses[string(model.AccessLevelStakeholder)],
			g.Licenses["Visual Studio Subscriber"] + g.Licenses[string(model.AccessLevelVSSubscriber)],
			g.Licenses["Visual Studio Enterprise"] + g.Licenses[string(model.AccessLevelVSEnterprise)],
			g.TotalCost,
			costPerUser,
		})
	}

	return setRows(f, sheet, header, rows)
}

func buildGroupAnalysisSheet(f *excelize.File, sheet string, r *model.OrganizationReport) error {
	header := []any{
		"Organization", "Group Name", "Group Type", "Member Count",
		"Is Security Group", "Domain", "Origin", "Is Orphaned",
	}

	groups, orphaned := collectReportGroups(r)

	var rows [][]any
	for _, desc := range sortedKeys(groups) {
		g := groups[desc]
		isSecurity := g.IsSecurityGroup
		rows = append(rows, []any{
			r.Organization,
			g.DisplayName,
			string(g.GroupType),
			g.MemberCount,
			yesNo(&isSecurity),
			g.Domain,
			g.Origin,
			yesNo(boolPtr(orphaned[desc])),
		})
	}

	return setRows(f, sheet, header, rows)
}

func buildLicenseAnalysisSheet(f *excelize.File, sheet string, r *model.OrganizationReport) error {
	header := []any{"License Type", "Count", "Percentage"}

	total := 0
	for _, count := range r.LicensesByType {
		total += count
	}

	var rows [][]any
	for _, licenseType := range sortedKeys(r.LicensesByType) {
		count := r.LicensesByType[licenseType]
		percentage := 0.0
		if total > 0 {
			percentage = float64(count) / float64(total) * 100
		}
		rows = append(rows, []any{
			titleize(licenseType),
			count,
			fmt.Sprintf("%.1f%%", percentage),
		})
	}

	return setRows(f, sheet, header, rows)
}
