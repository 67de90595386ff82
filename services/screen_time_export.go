package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Screen Time"

var summaryHeader = []string{"Date", "Minutes Used", "Limit Ref"}

// ExportSummary тот же агрегат, что и GetSummary, в виде xlsx
func (s *ScreenTimeService) ExportSummary(ctx context.Context, parentUID string, childID uint, rangeDays int) ([]byte, error) {
	summary, err := s.GetSummary(ctx, parentUID, childID, rangeDays)
	if err != nil {
		return nil, err
	}
	return renderSummary(summary)
}

func renderSummary(summary Summary) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo требует открытого файла, поэтому Close вызывается вручную

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range summaryHeader {
		if err := setCell(f, col+1, 1, header); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "C1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "C", 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	row := 2
	for _, record := range summary.PerDay {
		values := []interface{}{record.Day.Format("2006-01-02"), record.MinutesUsed, record.LimitRef}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				f.Close()
				return nil, err
			}
		}
		row++
	}

	// Итоги под таблицей
	totals := [][]interface{}{
		{"Total", summary.TotalMinutes},
		{"Average per day", summary.AverageMinutes},
		{"Days", summary.RangeDays},
	}
	row++
	for _, line := range totals {
		for col, v := range line {
			if err := setCell(f, col+1, row, v); err != nil {
				f.Close()
				return nil, err
			}
		}
		row++
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(summarySheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
