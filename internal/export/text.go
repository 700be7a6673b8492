package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

func renderCSV(records []extract.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

type jsonDocument struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Records     []extract.Record `json:"records"`
}

func renderJSON(records []extract.Record, now time.Time) ([]byte, error) {
	if records == nil {
		records = []extract.Record{}
	}
	return json.MarshalIndent(jsonDocument{
		GeneratedAt: now.UTC(),
		Count:       len(records),
		Records:     records,
	}, "", "  ")
}

func renderTXT(records []extract.Record) ([]byte, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, r := range records {
		fmt.Fprintln(tw, strings.Join(row(r), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "\n%d record(s)\n", len(records))
	return buf.Bytes(), nil
}
