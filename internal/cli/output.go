package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/homeids/internal/models"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

type logRow struct {
	ID        int64  `json:"id" yaml:"id"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	LogType   string `json:"log_type" yaml:"log_type"`
	Severity  string `json:"severity" yaml:"severity"`
	Device    string `json:"device,omitempty" yaml:"device,omitempty"`
	User      string `json:"user,omitempty" yaml:"user,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	Message   string `json:"message" yaml:"message"`
}

// WriteLogs renders events to w in the requested format.
func WriteLogs(w io.Writer, format string, events []models.LogEvent) error {
	rows := make([]logRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, logRow{
			ID:        e.ID,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			LogType:   string(e.LogType),
			Severity:  string(e.Severity),
			Device:    e.Device,
			User:      e.User,
			Source:    e.Source,
			Message:   e.Message,
		})
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIMESTAMP\tTYPE\tSEVERITY\tDEVICE\tMESSAGE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Timestamp, r.LogType, r.Severity, r.Device, r.Message)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
	}
}
