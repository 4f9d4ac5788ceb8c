package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cmdouglas/adoreport/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64(v float64) *float64 { return &v }

func testReport() *model.OrganizationReport {
	basic := model.Entitlement{
		UserDescriptor:     "aad.u1",
		AccessLevel:        model.AccessLevelBasic,
		LicenseDisplayName: "Basic",
	}
	accessed := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	basic.LastAccessedDate = &accessed

	engineering := model.Group{
		Descriptor:      "vssgp.g1",
		DisplayName:     "Engineering",
		SubjectKind:     model.SubjectKindGroup,
		GroupType:       model.GroupTypeAzureAD,
		Origin:          "aad",
		IsSecurityGroup: true,
		MemberCount:     2,
	}
	orphan := model.Group{
		Descriptor:  "vssgp.g2",
		DisplayName: "Empty Group",
		SubjectKind: model.SubjectKindGroup,
		GroupType:   model.GroupTypeAzureAD,
		Origin:      "aad",
	}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	return &model.OrganizationReport{
		Organization:      "contoso",
		GeneratedAt:       now,
		TotalUsers:        2,
		TotalGroups:       2,
		TotalEntitlements: 2,
		UserSummaries: []model.UserEntitlementSummary{
			{
				User: model.User{
					Descriptor:  "aad.u1",
					DisplayName: "Jamie Doe",
					MailAddress: "jamie@example.com",
					SubjectKind: model.SubjectKindUser,
					Origin:      "aad",
				},
				Entitlement:          &basic,
				DirectGroups:         []model.Group{engineering},
				AllGroups:            []model.Group{engineering},
				EffectiveAccessLevel: model.AccessLevelBasic,
				LicenseCost:          f64(6.00),
				ChargebackGroups:     []string{"Engineering"},
				LastUpdated:          now,
			},
			{
				User: model.User{
					Descriptor:  "aad.u2",
					DisplayName: "Robin Roe",
					SubjectKind: model.SubjectKindUser,
					Origin:      "aad",
				},
				EffectiveAccessLevel: model.AccessLevelNone,
				ChargebackGroups:     []string{},
				LastUpdated:          now,
			},
		},
		GroupsByType:   map[string]int{"azureActiveDirectory": 2},
		OrphanedGroups: []model.Group{orphan},
		LicensesByType: map[string]int{"Basic": 1, "Unknown": 1},
		TotalLicenseCost: f64(6.00),
		ChargebackByGroup: map[string]model.ChargebackGroup{
			"Engineering": {
				Users: []model.ChargebackUser{
					{Name: "Jamie Doe", Email: "jamie@example.com", LicenseType: "Basic", AccessLevel: model.AccessLevelBasic, LicenseCost: 6.00},
				},
				TotalUsers: 1,
				Licenses:   map[string]int{"Basic": 1},
				TotalCost:  6.00,
			},
		},
	}
}

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewWriter(dir, false, discardLogger())
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	return w, dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return rows
}

func TestGenerateCSVReports(t *testing.T) {
	t.Parallel()
	w, _ := newTestWriter(t)

	paths, err := w.GenerateCSVReports(testReport())
	if err != nil {
		t.Fatalf("GenerateCSVReports() error = %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("got %d files, want 4", len(paths))
	}

	// Static filenames when timestamps are disabled.
	wantFiles := []string{
		"contoso_user_summary.csv",
		"contoso_chargeback.csv",
		"contoso_group_analysis.csv",
		"contoso_license_summary.csv",
	}
	for i, want := range wantFiles {
		if filepath.Base(paths[i]) != want {
			t.Errorf("file %d = %s, want %s", i, filepath.Base(paths[i]), want)
		}
	}
}

func TestUserSummaryCSV_Rows(t *testing.T) {
	t.Parallel()
	w, dir := newTestWriter(t)

	if _, err := w.GenerateCSVReports(testReport()); err != nil {
		t.Fatalf("GenerateCSVReports() error = %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "contoso_user_summary.csv"))
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2 users", len(rows))
	}
	if rows[0][0] != "Organization" || rows[0][1] != "User Name" {
		t.Errorf("header = %v", rows[0])
	}

	jamie := rows[1]
	if jamie[1] != "Jamie Doe" {
		t.Errorf("user name = %q, want Jamie Doe", jamie[1])
	}
	if jamie[9] != "basic" {
		t.Errorf("access level = %q, want basic", jamie[9])
	}
	if jamie[15] != "6.00" {
		t.Errorf("license cost = %q, want 6.00", jamie[15])
	}
	if jamie[16] != "2026-03-15" {
		t.Errorf("last accessed = %q, want 2026-03-15", jamie[16])
	}

	robin := rows[2]
	if robin[15] != "0.00" {
		t.Errorf("unentitled license cost = %q, want 0.00", robin[15])
	}
}

func TestChargebackCSV_Math(t *testing.T) {
	t.Parallel()
	w, dir := newTestWriter(t)

	r := testReport()
	r.ChargebackByGroup = map[string]model.ChargebackGroup{
		"Engineering": {
			TotalUsers: 2,
			Licenses:   map[string]int{"Basic": 2},
			TotalCost:  12.00,
		},
	}
	if _, err := w.GenerateCSVReports(r); err != nil {
		t.Fatalf("GenerateCSVReports() error = %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "contoso_chargeback.csv"))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus 1 group", len(rows))
	}
	row := rows[1]
	if row[1] != "Engineering" || row[2] != "2" || row[3] != "2" {
		t.Errorf("row = %v, want Engineering with 2 users and 2 basic licenses", row)
	}
	if row[8] != "12.00" {
		t.Errorf("total cost = %q, want 12.00", row[8])
	}
	if row[9] != "6.00" {
		t.Errorf("cost per user = %q, want 6.00", row[9])
	}
}

func TestGroupAnalysisCSV_ExcludesBuiltInsMarksOrphans(t *testing.T) {
	t.Parallel()
	w, dir := newTestWriter(t)

	r := testReport()
	builtin := model.Group{
		Descriptor:  "vssgp.builtin",
		DisplayName: "Project Administrators",
		Origin:      "vsts",
	}
	r.UserSummaries[0].AllGroups = append(r.UserSummaries[0].AllGroups, builtin)

	if _, err := w.GenerateCSVReports(r); err != nil {
		t.Fatalf("GenerateCSVReports() error = %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "contoso_group_analysis.csv"))
	for _, row := range rows[1:] {
		if row[1] == "Project Administrators" {
			t.Error("built-in group must not appear in group analysis")
		}
	}

	foundOrphan := false
	for _, row := range rows[1:] {
		if row[1] == "Empty Group" {
			foundOrphan = true
			if row[7] != "Yes" {
				t.Errorf("orphan flag = %q, want Yes", row[7])
			}
		}
	}
	if !foundOrphan {
		t.Error("orphaned group missing from group analysis")
	}
}

func TestLicenseSummaryCSV_TotalsRow(t *testing.T) {
	t.Parallel()
	w, dir := newTestWriter(t)

	if _, err := w.GenerateCSVReports(testReport()); err != nil {
		t.Fatalf("GenerateCSVReports() error = %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "contoso_license_summary.csv"))
	last := rows[len(rows)-1]
	if last[0] != "TOTAL" || last[1] != "2" || last[2] != "100.0%" {
		t.Errorf("totals row = %v, want [TOTAL 2 100.0%%]", last)
	}
}

func TestGenerateJSONReport_Structure(t *testing.T) {
	t.Parallel()
	w, _ := newTestWriter(t)

	path, err := w.GenerateJSONReport(testReport())
	if err != nil {
		t.Fatalf("GenerateJSONReport() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, key := range []string{"metadata", "license_analysis", "chargeback_analysis", "user_summaries", "orphaned_groups"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}

	var meta struct {
		Organization     string   `json:"organization"`
		TotalLicenseCost *float64 `json:"total_license_cost"`
	}
	if err := json.Unmarshal(doc["metadata"], &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Organization != "contoso" {
		t.Errorf("organization = %q, want contoso", meta.Organization)
	}
	if meta.TotalLicenseCost == nil || *meta.TotalLicenseCost != 6.00 {
		t.Errorf("total license cost = %v, want 6.00", meta.TotalLicenseCost)
	}
}

func TestGenerateExcelReport_Sheets(t *testing.T) {
	t.Parallel()
	w, _ := newTestWriter(t)

	path, err := w.GenerateExcelReport(testReport())
	if err != nil {
		t.Fatalf("GenerateExcelReport() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	want := []string{"Summary", "User Details", "Chargeback Analysis", "Group Analysis", "License Analysis"}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, got[i], want[i])
		}
	}

	cell, err := f.GetCellValue("Summary", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if cell != "contoso" {
		t.Errorf("Summary!B2 = %q, want contoso", cell)
	}
}

func TestGenerateAll_UnknownFormatSkipped(t *testing.T) {
	t.Parallel()
	w, _ := newTestWriter(t)

	generated := w.GenerateAll(testReport(), []string{"csv", "hologram"})
	if _, ok := generated["csv"]; !ok {
		t.Error("csv output missing")
	}
	if _, ok := generated["hologram"]; ok {
		t.Error("unknown format must be skipped")
	}
}

func TestFilename_WithTimestamp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := NewWriter(dir, true, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 5, 1, 12, 30, 45, 0, time.UTC)
	got := w.filename("contoso_report", ".xlsx", at)
	if !strings.HasSuffix(got, "contoso_report_20260501_123045.xlsx") {
		t.Errorf("filename = %q, want timestamp suffix", got)
	}
}

func TestTitleize(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"basic", "Basic"},
		{"azure_active_directory", "Azure Active Directory"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := titleize(tt.in); got != tt.want {
			t.Errorf("titleize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
