package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"meteoplan/internal/model"
)

const (
	planSheet    = "Plan"
	summarySheet = "Summary"
)

// WritePlan renders plan as an xlsx workbook: one row per day on the Plan
// sheet and the parameters and totals on the Summary sheet.
func WritePlan(w io.Writer, plan model.Plan) error {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", planSheet); err != nil {
		return err
	}
	if err := wb.SetSheetRow(planSheet, "A1", &[]any{"Day", "Date", "Location", "Humidity", "Change"}); err != nil {
		return err
	}
	for i, s := range plan.Steps {
		row := []any{s.Day, s.Date, s.Location, s.Humidity}
		if i > 0 && plan.Steps[i-1].Location != s.Location {
			row = append(row, "yes")
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(planSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := wb.SetColWidth(planSheet, "B", "C", 14); err != nil {
		return err
	}
	if err := wb.SetPanes(planSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if _, err := wb.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Plan", plan.ID},
		{"Month", plan.Month},
		{"Cost", plan.Cost},
		{"Changes", plan.Changes},
		{"Total days", plan.Params.TotalDays},
		{"Min consecutive", plan.Params.MinConsecutive},
		{"Max occupancy", plan.Params.MaxOccupancy},
		{"Change cost", plan.Params.ChangeCost},
		{"Sequences evaluated", plan.Stats.Leaves},
	}
	for i, row := range rows {
		if err := wb.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	if err := wb.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return err
	}
	return wb.Write(w)
}
