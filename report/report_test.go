package report

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
)

func init() {
	pterm.DisableStyling()
}

func failedReport() *models.RunReport {
	dash := record.NewGroup()
	dash.Set("Dashboard_Metric_1", "1,204 (Total Customers)")
	dash.Set("Dashboard_Metric_Gender_Male", "52%")
	row := record.NewGroup()
	row.Set("Column_1", "C-001")
	row.Set("Column_2", "")
	rec := record.New().Merge(record.Dashboard, dash).Merge(record.CustomerData, row)
	rep := record.Validate(rec)

	return &models.RunReport{
		ID:       "run-7",
		Attempts: 1,
		State:    "RowExtracted",
		Steps: []models.StepResult{
			{Name: "extract dashboard metrics", Status: models.StepPassed, DurationMs: 812, Warnings: []string{"location: hover failed"}},
			{Name: "validate", Status: models.StepFailed, Error: &models.ErrorDetail{
				Code:    models.ErrCodeEmptyValue,
				Message: "found 1 empty values: CustomerData.Column_2",
			}},
		},
		Values:     rec,
		Validation: &rep,
		Error:      &models.ErrorDetail{Code: models.ErrCodeEmptyValue, Message: "found 1 empty values: CustomerData.Column_2"},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, failedReport()))
	out := buf.String()

	assert.Contains(t, out, "extract dashboard metrics")
	assert.Contains(t, out, "location: hover failed")
	assert.Contains(t, out, "Dashboard.Dashboard_Metric_Gender_Male")
	assert.Contains(t, out, "CustomerData.Column_2")
	assert.Contains(t, out, "Total Dashboard Values: 2")
	assert.Contains(t, out, "Total Customer Data Fields: 2")
	assert.Contains(t, out, "Empty Values Found: 1")
	assert.Contains(t, out, "run run-7 failed at RowExtracted: EMPTY_VALUE")
}

func TestSummary_Passed(t *testing.T) {
	rep := &models.RunReport{ID: "run-8", Passed: true, Attempts: 2, DurationMs: 4200}
	out := Summary(rep)

	assert.Contains(t, out, "Total Dashboard Values: 0")
	assert.Contains(t, out, "run run-8 passed in 4200ms after 2 attempt(s)")
}
