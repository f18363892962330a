/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The legacy payroll
  endpoints use camelCase keys that existing clients depend on; the /api
  endpoints use snake_case like the rest of the service.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// LEGACY PAYROLL CONTRACT
// =============================================================================

// PayrollResponse is the body of GET /getPayRoll.
type PayrollResponse struct {
	PayrollReport PayrollReportDTO `json:"payrollReport"`
}

// PayrollReportDTO wraps the per-employee reports.
type PayrollReportDTO struct {
	EmployeeReports []EmployeeReportDTO `json:"employeeReports"`
}

// EmployeeReportDTO is one employee's pay for one pay period.
type EmployeeReportDTO struct {
	EmployeeID int64        `json:"employeeId"`
	PayPeriod  PayPeriodDTO `json:"payPeriod"`
	AmountPaid string       `json:"amountPaid"`
}

// PayPeriodDTO holds inclusive period bounds.
type PayPeriodDTO struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func toPayrollResponse(reports []payroll.PayrollReport) PayrollResponse {
	dtos := make([]EmployeeReportDTO, len(reports))
	for i, r := range reports {
		dtos[i] = EmployeeReportDTO{
			EmployeeID: r.EmployeeID,
			PayPeriod: PayPeriodDTO{
				StartDate: r.PayPeriod.StartDate(),
				EndDate:   r.PayPeriod.EndDate(),
			},
			AmountPaid: r.AmountPaid,
		}
	}
	return PayrollResponse{PayrollReport: PayrollReportDTO{EmployeeReports: dtos}}
}

// =============================================================================
// INGESTIONS
// =============================================================================

// IngestionDTO represents an accepted upload.
type IngestionDTO struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	RowCount   int       `json:"row_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func toIngestionDTO(rec payroll.IngestionRecord) IngestionDTO {
	return IngestionDTO{
		ID:         rec.ID,
		Identifier: rec.Identifier,
		RowCount:   rec.RowCount,
		CreatedAt:  rec.CreatedAt,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Files       []string `json:"files"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse lists what a scenario ingested.
type LoadScenarioResponse struct {
	Status     string         `json:"status"`
	Scenario   string         `json:"scenario"`
	Ingestions []IngestionDTO `json:"ingestions"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
