package share

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// OfferColumns are the CSV columns written by OfferRows.
var OfferColumns = []string{"id", "route", "currency", "totalPrice", "airline", "flightNumber", "stops", "duration", "segments"}

// NotificationColumns are the CSV columns written by NotificationRows.
var NotificationColumns = []string{"id", "offerId", "timestamp", "origin", "destination", "baseline", "current", "delta", "percent"}

// SummaryText renders one line per offer for pasting into chats.
func SummaryText(offers []domain.OfferSnapshot) string {
	lines := make([]string, 0, len(offers))
	for _, o := range offers {
		route := routeOf(o)
		price := "—"
		if p, ok := o.Price(); ok {
			price = formatNumber(p)
		}
		var airline, flightNumber, duration, segments string
		if f := o.Flight; f != nil {
			if f.AirlineName != "" || f.AirlineCode != "" {
				airline = strings.TrimSpace(fmt.Sprintf("%s (%s)", f.AirlineName, f.AirlineCode))
			}
			flightNumber = f.FlightNumber
			duration = f.DurationText
			segments = strings.Join(f.Segments, " | ")
		}
		lines = append(lines, fmt.Sprintf("%s | %s %s | %s %s | %s | Segments: %s",
			route, currencyOf(o), price, airline, flightNumber, duration, segments))
	}
	return strings.Join(lines, "\n")
}

// OfferRows flattens offers for CSV export, keyed by OfferColumns.
func OfferRows(offers []domain.OfferSnapshot) []map[string]string {
	rows := make([]map[string]string, 0, len(offers))
	for _, o := range offers {
		row := map[string]string{
			"id":       o.ID,
			"route":    routeOf(o),
			"currency": currencyOf(o),
		}
		if p, ok := o.Price(); ok {
			row["totalPrice"] = formatNumber(p)
		}
		if f := o.Flight; f != nil {
			row["airline"] = f.AirlineName
			if row["airline"] == "" {
				row["airline"] = f.AirlineCode
			}
			row["flightNumber"] = f.FlightNumber
			if f.Stops != nil {
				row["stops"] = fmt.Sprint(*f.Stops)
			}
			row["duration"] = f.DurationText
			row["segments"] = strings.Join(f.Segments, " | ")
		}
		rows = append(rows, row)
	}
	return rows
}

// NotificationRows flattens notifications for CSV export, keyed by
// NotificationColumns.
func NotificationRows(ns []domain.Notification) []map[string]string {
	rows := make([]map[string]string, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, map[string]string{
			"id":          n.ID,
			"offerId":     n.OfferID,
			"timestamp":   n.Timestamp.UTC().Format(time.RFC3339),
			"origin":      n.Origin,
			"destination": n.Destination,
			"baseline":    formatNumber(n.Baseline),
			"current":     formatNumber(n.Current),
			"delta":       formatNumber(n.Delta),
			"percent":     fmt.Sprintf("%.2f", n.Percent),
		})
	}
	return rows
}

// WriteCSV writes a header row of columns followed by one line per row.
// Missing cells are written empty.
func WriteCSV(w io.Writer, rows []map[string]string, columns []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("share: write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			record[i] = r[c]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("share: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter uploads exports to object storage under a dated prefix.
type Exporter struct {
	writer domain.BlobWriter
	prefix string
	now    func() time.Time
}

// NewExporter creates an Exporter writing under prefix (e.g. "exports").
func NewExporter(writer domain.BlobWriter, prefix string) *Exporter {
	return &Exporter{writer: writer, prefix: strings.Trim(prefix, "/"), now: time.Now}
}

// ExportJSON uploads v as indented JSON and returns the object path.
func (e *Exporter) ExportJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("share: marshal export %s: %w", name, err)
	}
	return e.put(ctx, name+".json", data, "application/json")
}

// ExportCSV uploads rows as CSV and returns the object path.
func (e *Exporter) ExportCSV(ctx context.Context, name string, rows []map[string]string, columns []string) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, columns); err != nil {
		return "", err
	}
	return e.put(ctx, name+".csv", buf.Bytes(), "text/csv")
}

func (e *Exporter) put(ctx context.Context, file string, data []byte, contentType string) (string, error) {
	path := fmt.Sprintf("%s/%s/%s", e.prefix, e.now().UTC().Format("2006-01-02"), file)
	if e.prefix == "" {
		path = strings.TrimPrefix(path, "/")
	}
	if err := e.writer.Put(ctx, path, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("share: upload %s: %w", path, err)
	}
	return path, nil
}

func routeOf(o domain.OfferSnapshot) string {
	if f := o.Flight; f != nil && f.Origin != "" && f.Destination != "" {
		return f.Origin + " → " + f.Destination
	}
	if o.TripOptionID != "" {
		return o.TripOptionID
	}
	if o.ID != "" {
		return o.ID
	}
	return "Unknown"
}

func currencyOf(o domain.OfferSnapshot) string {
	if o.Currency == "" {
		return "USD"
	}
	return o.Currency
}

func formatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
