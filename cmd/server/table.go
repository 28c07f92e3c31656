package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/iliyamo/newsroom-rundown/internal/model"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, footer []string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, columns))
	for _, row := range rows {
		tw.AppendRow(toRow(row, columns))
	}
	if footer != nil {
		tw.AppendFooter(toRow(footer, columns))
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, columns int) table.Row {
	r := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

// clock formats seconds as m:ss, or h:mm:ss from an hour up.
func clock(seconds int) string {
	if seconds < 0 {
		return "-" + clock(-seconds)
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// rundownTable lays a rundown out with a running time column.
func rundownTable(rd *model.Rundown) string {
	rows := make([][]string, 0, len(rd.Items))
	elapsed := 0
	for _, it := range rd.Items {
		rows = append(rows, []string{
			fmt.Sprint(it.Position),
			fmt.Sprint(it.ID),
			string(it.Type),
			it.Title,
			string(it.Status),
			clock(it.PlannedDuration),
			clock(elapsed),
		})
		elapsed += it.PlannedDuration
	}
	return renderTable(
		[]string{"#", "ID", "Type", "Title", "Status", "Duration", "Starts"},
		rows,
		[]string{"", "", "", "", "Total", clock(rd.TotalDuration), ""},
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}
