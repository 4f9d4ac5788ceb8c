package model

import "strings"

// AccessLevel is the canonical classification of a user's license tier,
// derived from the three raw fields the entitlements API returns.
type AccessLevel string

const (
	AccessLevelNone                  AccessLevel = "none"
	AccessLevelStakeholder           AccessLevel = "stakeholder"
	AccessLevelBasic                 AccessLevel = "basic"
	AccessLevelBasicPlusTestPlans    AccessLevel = "basicPlusTestPlans"
	AccessLevelVSSubscriber          AccessLevel = "visualStudioSubscriber"
	AccessLevelVSEnterprise          AccessLevel = "visualStudioEnterprise"
	AccessLevelVSProfessional        AccessLevel = "visualStudioProfessional"
	AccessLevelVSTestProfessional    AccessLevel = "visualStudioTestProfessional"
)

// LicensingSource is where a license is billed from.
type LicensingSource string

const (
	LicensingSourceNone    LicensingSource = "none"
	LicensingSourceAccount LicensingSource = "account"
	LicensingSourceMSDN    LicensingSource = "msdn"
)

// ParseLicensingSource maps a raw API string to a LicensingSource. The
// second return reports whether the input was recognized; unknown values
// fall back to none rather than failing.
func ParseLicensingSource(s string) (LicensingSource, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "account":
		return LicensingSourceAccount, true
	case "msdn":
		return LicensingSourceMSDN, true
	case "none", "":
		return LicensingSourceNone, true
	default:
		return LicensingSourceNone, false
	}
}

// MsdnLicenseType is the Visual Studio subscription tier attached to an
// MSDN-sourced license.
type MsdnLicenseType string

const (
	MsdnLicenseNone             MsdnLicenseType = "none"
	MsdnLicenseEligible         MsdnLicenseType = "eligible"
	MsdnLicenseEnterprise       MsdnLicenseType = "enterprise"
	MsdnLicenseProfessional     MsdnLicenseType = "professional"
	MsdnLicensePlatforms        MsdnLicenseType = "platforms"
	MsdnLicenseTestProfessional MsdnLicenseType = "testProfessional"
)

// ParseMsdnLicenseType maps a raw API string to an MsdnLicenseType with the
// same unknown-falls-back-to-none contract as ParseLicensingSource.
func ParseMsdnLicenseType(s string) (MsdnLicenseType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eligible":
		return MsdnLicenseEligible, true
	case "enterprise":
		return MsdnLicenseEnterprise, true
	case "professional":
		return MsdnLicenseProfessional, true
	case "platforms":
		return MsdnLicensePlatforms, true
	case "testprofessional":
		return MsdnLicenseTestProfessional, true
	case "none", "":
		return MsdnLicenseNone, true
	default:
		return MsdnLicenseNone, false
	}
}

// ClassifyAccessLevel derives the canonical access level from the raw
// accountLicenseType, licensingSource and msdnLicenseType fields, per the
// combinations the entitlements API contract documents:
//
//	Basic                     express      account  none
//	Basic + Test Plans        advanced     account  none
//	Visual Studio Subscriber  none         msdn     eligible
//	Visual Studio Enterprise  none         msdn     enterprise
//	Stakeholder               stakeholder  account  none
//
// Any other combination resolves to AccessLevelNone. The function is total:
// it never fails, whatever the inputs.
func ClassifyAccessLevel(accountLicenseType string, src LicensingSource, msdn MsdnLicenseType) AccessLevel {
	account := strings.ToLower(strings.TrimSpace(accountLicenseType))

	switch {
	case account == "express" && src == LicensingSourceAccount && msdn == MsdnLicenseNone:
		return AccessLevelBasic
	case account == "advanced" && src == LicensingSourceAccount && msdn == MsdnLicenseNone:
		return AccessLevelBasicPlusTestPlans
	case account == "none" && src == LicensingSourceMSDN && msdn == MsdnLicenseEligible:
		return AccessLevelVSSubscriber
	case account == "none" && src == LicensingSourceMSDN && msdn == MsdnLicenseEnterprise:
		return AccessLevelVSEnterprise
	case account == "stakeholder" && src == LicensingSourceAccount && msdn == MsdnLicenseNone:
		return AccessLevelStakeholder
	default:
		return AccessLevelNone
	}
}

// licenseCosts is the monthly USD price per access level. Visual Studio
// subscriptions are billed separately, so their Azure DevOps cost is zero.
var licenseCosts = map[AccessLevel]float64{
	AccessLevelStakeholder:        0,
	AccessLevelBasic:              6.00,
	AccessLevelBasicPlusTestPlans: 52.00,
	AccessLevelVSSubscriber:       0,
	AccessLevelVSEnterprise:       0,
	AccessLevelNone:               0,
}

// LicenseCost returns the monthly cost of an access level. Levels absent
// from the cost table yield zero; the lookup is total.
func LicenseCost(level AccessLevel) float64 {
	return licenseCosts[level]
}

// EntitlementCost returns the license cost for an entitlement, or nil when
// there is no entitlement at all. A nil result means "not applicable", which
// is distinct from a free (zero-cost) entitlement.
func EntitlementCost(e *Entitlement) *float64 {
	if e == nil {
		return nil
	}
	cost := LicenseCost(e.AccessLevel)
	return &cost
}
