package router

import (
	"fmt"
	"slices"
	"strings"
)

type UserType string

const (
	UserAdmin      UserType = "admin"
	UserAccountant UserType = "accountant"
	UserEmployee   UserType = "employee"
	UserCustomer   UserType = "customer"
)

// Section names. A section grants every route whose path contains it,
// except for the special cases in sectionMatches.
const (
	SectionAdmin             = "admin-section"
	SectionAccountant        = "accountant-section"
	SectionItem              = "item-section"
	SectionBranch            = "branch-section"
	SectionItemCategory      = "item-category-section"
	SectionEmployee          = "employee-section"
	SectionLocation          = "location-section"
	SectionCustomer          = "customer-section"
	SectionItemTransaction   = "item-transaction-section"
	SectionTransaction       = "transaction-section"
	SectionOffer             = "offer-section"
	SectionExpense           = "expense-section"
	SectionReports           = "reports"
	SectionProfile           = "profile"
	SectionLogs              = "logs-section"
	SectionBlum              = "blum-section"
	SectionHowToUse          = "how-to-use"
	SectionTransferRequest   = "transfer-request-section"
	SectionWarehouseTransfer = "warehouse-transfer-section"
	SectionDashboard         = "dashboard"
)

var userTypePermissions = map[UserType][]string{
	UserAdmin: {
		SectionAdmin,
		SectionAccountant,
		SectionItem,
		SectionBranch,
		SectionItemCategory,
		SectionEmployee,
		SectionLocation,
		SectionCustomer,
		SectionItemTransaction,
		SectionTransaction,
		SectionOffer,
		SectionExpense,
		SectionReports,
		SectionProfile,
		SectionLogs,
		SectionWarehouseTransfer,
		SectionBlum,
		SectionHowToUse,
	},
	UserAccountant: {},
	UserEmployee: {
		SectionItem,
		SectionTransferRequest,
		SectionWarehouseTransfer,
		SectionBranch,
		SectionItemCategory,
		SectionOffer,
		SectionLocation,
		SectionItemTransaction,
		SectionTransaction,
		SectionExpense,
		SectionProfile,
		SectionBlum,
		SectionCustomer,
		SectionHowToUse,
	},
	UserCustomer: {
		SectionTransaction,
		SectionDashboard,
		SectionOffer,
	},
}

// SectionsFor returns a copy of the sections granted to userType.
func SectionsFor(userType UserType) []string {
	return slices.Clone(userTypePermissions[userType])
}

// HasRoutePermission reports whether userType may open routePath.
func HasRoutePermission(userType UserType, routePath string) bool {
	for _, section := range userTypePermissions[userType] {
		if sectionMatches(section, routePath) {
			return true
		}
	}
	return false
}

func sectionMatches(section, routePath string) bool {
	switch section {
	case SectionReports:
		return strings.Contains(routePath, "/reports/")
	case SectionExpense:
		return strings.Contains(routePath, "/expense-section") || strings.Contains(routePath, "/expense-category-section")
	case SectionTransaction:
		return strings.Contains(routePath, SectionTransaction) || strings.Contains(routePath, "/invoice/")
	}
	return strings.Contains(routePath, section)
}

// Permissions answers section questions for the current user.
type Permissions struct {
	userType func() UserType
	onDenied func(message string)
}

// NewPermissions reads the user type on every call so it follows logins and
// logouts. onDenied receives the message of a failed Require and may be nil.
func NewPermissions(userType func() UserType, onDenied func(message string)) Permissions {
	return Permissions{userType: userType, onDenied: onDenied}
}

func (p Permissions) UserType() UserType {
	if p.userType == nil {
		return ""
	}
	return p.userType()
}

func (p Permissions) IsAdmin() bool      { return p.UserType() == UserAdmin }
func (p Permissions) IsAccountant() bool { return p.UserType() == UserAccountant }
func (p Permissions) IsEmployee() bool   { return p.UserType() == UserEmployee }
func (p Permissions) IsCustomer() bool   { return p.UserType() == UserCustomer }

// Has is an exact section membership test.
func (p Permissions) Has(section string) bool {
	return slices.Contains(userTypePermissions[p.UserType()], section)
}

func (p Permissions) HasAny(sections ...string) bool {
	return slices.ContainsFunc(sections, p.Has)
}

func (p Permissions) HasAll(sections ...string) bool {
	for _, s := range sections {
		if !p.Has(s) {
			return false
		}
	}
	return true
}

func (p Permissions) CanAccessReports() bool           { return p.Has(SectionReports) }
func (p Permissions) CanAccessAdminSection() bool      { return p.Has(SectionAdmin) }
func (p Permissions) CanAccessAccountantSection() bool { return p.Has(SectionAccountant) }
func (p Permissions) CanAccessLogsSection() bool       { return p.Has(SectionLogs) }
func (p Permissions) CanManageUsers() bool             { return p.IsAdmin() }
func (p Permissions) CanManageFinances() bool          { return p.IsAdmin() || p.IsAccountant() }

// Require checks section and reports a denial through onDenied.
func (p Permissions) Require(section, message string) bool {
	if p.Has(section) {
		return true
	}
	if message == "" {
		message = fmt.Sprintf("You don't have permission to access %s", section)
	}
	if p.onDenied != nil {
		p.onDenied(message)
	}
	return false
}
