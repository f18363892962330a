/*
scenarios.go - Demo timesheets for testing and demonstrations

PURPOSE:
  Provides bundled timesheets that populate the database through the same
  gatekeeper as real uploads, so every demo also exercises ingestion.

AVAILABLE SCENARIOS:
  single-period:   One employee, one pay period, both job groups
  month-boundary:  Shifts on the 15th and 16th land in different periods
  two-files:       Two monthly uploads from the same team
  fractional:      Fractional hours showing the legacy amount format

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Admit each bundled file in order
 3. Invalidate the report cache

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "two-files"}

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - ingest/gatekeeper.go: Admit
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/warp/payroll-engine/ingest"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioFile struct {
	Name string
	CSV  string
}

type scenario struct {
	ScenarioDTO
	files []scenarioFile
}

const csvHeader = "date,hours worked,employee id,job group\n"

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "single-period",
			Name:        "Single Pay Period",
			Description: "One employee working both job groups in the first half of January",
		},
		files: []scenarioFile{{
			Name: "time-report-1.csv",
			CSV: csvHeader +
				"02/01/2023,10,1,A\n" +
				"09/01/2023,5,1,B\n",
		}},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "month-boundary",
			Name:        "Month Boundary",
			Description: "Shifts on the 15th and 16th are paid in different periods",
		},
		files: []scenarioFile{{
			Name: "time-report-2.csv",
			CSV: csvHeader +
				"15/02/2023,8,1,A\n" +
				"16/02/2023,8,1,A\n" +
				"28/02/2023,4,2,B\n",
		}},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "two-files",
			Name:        "Two Monthly Uploads",
			Description: "Separate uploads for November and December from a two-person team",
		},
		files: []scenarioFile{
			{
				Name: "time-report-11.csv",
				CSV: csvHeader +
					"04/11/2023,10,1,A\n" +
					"14/11/2023,5,1,A\n" +
					"14/11/2023,7.5,2,B\n" +
					"20/11/2023,4,2,B\n",
			},
			{
				Name: "time-report-12.csv",
				CSV: csvHeader +
					"01/12/2023,8,1,A\n" +
					"20/12/2023,4,1,A\n" +
					"21/12/2023,6,2,B\n",
			},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "fractional",
			Name:        "Fractional Hours",
			Description: "Quarter hours in group B produce a non-integral amount",
		},
		files: []scenarioFile{{
			Name: "time-report-fractional.csv",
			CSV: csvHeader +
				"03/03/2023,1.25,3,B\n" +
				"04/03/2023,2.5,4,A\n",
		}},
	},
}

func init() {
	for i := range scenarios {
		for _, f := range scenarios[i].files {
			scenarios[i].Files = append(scenarios[i].Files, f.Name)
		}
	}
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ingested, err := h.loadScenario(r.Context(), s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = s.ID

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Status:     "loaded",
		Scenario:   s.ID,
		Ingestions: ingested,
	})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, s scenario) ([]IngestionDTO, error) {
	if err := h.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""
	defer h.dataChanged(ctx)

	ingested := make([]IngestionDTO, 0, len(s.files))
	for _, f := range s.files {
		rec, err := h.Gatekeeper.Admit(ctx, &ingest.Upload{
			Filename: f.Name,
			Body:     strings.NewReader(f.CSV),
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		ingested = append(ingested, toIngestionDTO(*rec))
	}
	return ingested, nil
}
