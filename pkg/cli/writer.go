package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"

	"github.com/TechXTT/fluentdao/pkg/dao"
)

const nullValue = "NULL"

var formats = []string{"table", "csv", "markdown", "html"}

// writeRows renders rows under cols in the given format. Cells are matched
// to headers by position.
func writeRows(w io.Writer, format string, cols []string, rows [][]any) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, r := range rows {
		out := make(table.Row, len(r))
		for i, v := range r {
			out[i] = cell(v)
		}
		t.AppendRow(out)
	}

	switch format {
	case "table":
		t.Render()
	case "csv":
		t.RenderCSV()
	case "markdown":
		t.RenderMarkdown()
	case "html":
		t.RenderHTML()
	default:
		return errors.Errorf("unknown format %q, want one of %v", format, formats)
	}
	return nil
}

// cell formats a column value; go-pretty doesn't expect nil values.
func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return nullValue
	case *dao.Stream:
		return fmt.Sprintf("<%d bytes>", x.Size())
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return v
	}
}
