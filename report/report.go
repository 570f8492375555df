// Package report renders a RunReport for terminals.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
)

// Render writes the step table, the value table and the summary lines.
func Render(w io.Writer, rep *models.RunReport) error {
	steps := pterm.TableData{{"Step", "Status", "Duration", "Detail"}}
	for _, s := range rep.Steps {
		detail := strings.Join(s.Warnings, "; ")
		if s.Error != nil {
			detail = s.Error.Code + ": " + s.Error.Message
		}
		steps = append(steps, []string{s.Name, s.Status, strconv.FormatInt(s.DurationMs, 10) + "ms", detail})
	}
	out, err := pterm.DefaultTable.WithHasHeader(true).WithData(steps).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)

	if rep.Values != nil {
		triples := rep.Values.Triples()
		if len(triples) > 0 {
			values := pterm.TableData{{"Key", "Value", "Empty"}}
			for _, t := range triples {
				empty := ""
				if record.IsEmpty(t.Value) {
					empty = "yes"
				}
				values = append(values, []string{t.QualifiedKey(), t.Value, empty})
			}
			out, err := pterm.DefaultTable.WithHasHeader(true).WithData(values).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, out)
		}
	}

	fmt.Fprintln(w, Summary(rep))
	return nil
}

// Summary returns the closing lines of a run.
func Summary(rep *models.RunReport) string {
	var dashboard, customer, empty int
	if rep.Values != nil {
		dashboard = rep.Values.Group(record.Dashboard).Len()
		customer = rep.Values.Group(record.CustomerData).Len()
	}
	if rep.Validation != nil {
		empty = len(rep.Validation.EmptyValues)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total Dashboard Values: %d\n", dashboard)
	fmt.Fprintf(&b, "Total Customer Data Fields: %d\n", customer)
	fmt.Fprintf(&b, "Empty Values Found: %d\n", empty)

	if rep.Passed {
		b.WriteString(pterm.Success.Sprintf("run %s passed in %dms after %d attempt(s)", rep.ID, rep.DurationMs, rep.Attempts))
	} else {
		msg := "unknown error"
		if rep.Error != nil {
			msg = rep.Error.Code + ": " + rep.Error.Message
		}
		b.WriteString(pterm.Error.Sprintf("run %s failed at %s: %s", rep.ID, rep.State, msg))
	}
	return b.String()
}
