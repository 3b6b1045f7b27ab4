// Package spreadsheet renders an export report as an .xlsx workbook.
package spreadsheet

import (
	"fmt"
	"io"

	"github.com/boddenberg/ledger-bot-go/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetSummary    = "Summary"
	SheetDaily      = "Daily"
	SheetCategories = "Categories"
	SheetItems      = "Items"
)

const dateLayout = "2006-01-02"

// Filename is the suggested download name for rep.
func Filename(rep *domain.ExportReport) string {
	return fmt.Sprintf("ledger_%s_%s.xlsx", rep.From.Format("20060102"), rep.To.Format("20060102"))
}

// Write renders rep into w.
func Write(w io.Writer, rep *domain.ExportReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetDaily, SheetCategories, SheetItems} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Period", rep.Period},
		{"From", rep.From.Format(dateLayout)},
		{"To", rep.To.Format(dateLayout)},
		{"Total", rep.Total.InexactFloat64()},
		{"Items", len(rep.Items)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	daily := [][]any{{"Date", "Total"}}
	for _, d := range rep.Days {
		daily = append(daily, []any{d.Key, d.Total.InexactFloat64()})
	}
	if err := writeRows(f, SheetDaily, daily); err != nil {
		return err
	}

	categories := [][]any{{"Category", "Total"}}
	for _, c := range rep.Categories {
		categories = append(categories, []any{c.Key, c.Total.InexactFloat64()})
	}
	if err := writeRows(f, SheetCategories, categories); err != nil {
		return err
	}

	items := [][]any{{"Date", "Description", "Amount", "Category", "Name"}}
	for _, it := range rep.Items {
		items = append(items, []any{it.Date, it.Description, it.Amount.InexactFloat64(), it.Category, it.DisplayName})
	}
	if err := writeRows(f, SheetItems, items); err != nil {
		return err
	}

	f.SetColWidth(SheetSummary, "A", "A", 10)
	f.SetColWidth(SheetSummary, "B", "B", 16)
	f.SetColWidth(SheetDaily, "A", "B", 14)
	f.SetColWidth(SheetCategories, "A", "A", 18)
	f.SetColWidth(SheetItems, "A", "A", 18)
	f.SetColWidth(SheetItems, "B", "B", 30)
	f.SetColWidth(SheetItems, "D", "E", 14)
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
