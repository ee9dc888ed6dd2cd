// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/paging"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
)

// pageSize is larger than the usual list page; events are one line each.
const pageSize = 50

// listItem represents a single audit event row for display.
type listItem struct {
	ID        string
	Timestamp time.Time
	Category  string
	EventType string
	ActorName string
	OrgName   string
	TargetID  string
	IP        string
	Success   bool
	Reason    string
	Details   map[string]string
}

type option struct {
	ID    string
	Label string
}

// listData is the view model for the audit log list page.
type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Category  string
	EventType string
	StartDate string
	EndDate   string
	OrgID     string

	Categories []string
	EventTypes []string
	Orgs       []option // superadmin only

	Paging paging.View
}

var authEvents = []string{
	audit.EventLoginSuccess,
	audit.EventLoginFailedUserNotFound,
	audit.EventLoginFailedWrongPassword,
	audit.EventLoginFailedUserDisabled,
	audit.EventLoginFailedRateLimit,
	audit.EventLogout,
	audit.EventPasswordChanged,
}

var adminEvents = []string{
	audit.EventOrgCreated,
	audit.EventOrgUpdated,
	audit.EventOrgSuspended,
	audit.EventOrgReactivated,
	audit.EventSubscriptionRenewed,
	audit.EventPlanChanged,
	audit.EventUserCreated,
	audit.EventUserUpdated,
	audit.EventUserDisabled,
	audit.EventUserEnabled,
	audit.EventBuildingCreated,
	audit.EventBuildingUpdated,
	audit.EventBuildingDeleted,
	audit.EventPropertyCreated,
	audit.EventPropertyUpdated,
	audit.EventPropertyDeleted,
	audit.EventTenantCreated,
	audit.EventTenantUpdated,
	audit.EventTenantReassigned,
	audit.EventTenantActivated,
	audit.EventTenantDeactivated,
	audit.EventTenantDeleted,
	audit.EventProviderCreated,
	audit.EventProviderUpdated,
	audit.EventProviderDeleted,
	audit.EventTariffCreated,
	audit.EventTariffUpdated,
	audit.EventTariffDeleted,
	audit.EventMeterCreated,
	audit.EventMeterUpdated,
	audit.EventMeterDeleted,
}

var billingEvents = []string{
	audit.EventReadingCreated,
	audit.EventReadingUpdated,
	audit.EventReadingDeleted,
	audit.EventCirculationRecalc,
	audit.EventInvoiceGenerated,
	audit.EventInvoiceFinalized,
	audit.EventInvoicePaid,
	audit.EventInvoiceDeleted,
	audit.EventInvoiceRecomputed,
	audit.EventReportExported,
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case audit.CategoryBilling:
		return billingEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents)+len(billingEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return append(all, billingEvents...)
	default:
		return nil
	}
}
