package status

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const renderTimeLayout = "2006-01-02 15:04:05"

// RenderTable formats records as a two column table.
func RenderTable(records []Record) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(table.Row{"Log file", "Last rotation"})

	for _, r := range records {
		rotatedAt := "never"
		if !r.RotatedAt.IsZero() {
			rotatedAt = r.RotatedAt.In(time.Local).Format(renderTimeLayout)
		}

		tw.AppendRow(table.Row{r.Path, rotatedAt})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
