package share_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/share"
)

type memoryBlobs struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func (m *memoryBlobs) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.contentTypes = map[string]string{}
	}
	m.objects[path] = b
	m.contentTypes[path] = contentType
	return nil
}

func TestSummaryText(t *testing.T) {
	text := share.SummaryText(sampleOffers())
	lines := bytes.Split([]byte(text), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "NYC → LAX | USD 650 | United (UA) UA100 | 6h 10m | Segments: JFK-LAX", string(lines[0]))
	assert.Contains(t, string(lines[1]), "EUR 720.5")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, share.WriteCSV(&buf, share.OfferRows(sampleOffers()), share.OfferColumns))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, share.OfferColumns, records[0])
	assert.Equal(t, []string{"t1", "NYC → LAX", "USD", "650", "United", "UA100", "0", "6h 10m", "JFK-LAX"}, records[1])
	assert.Equal(t, "t2", records[2][0])
	assert.Equal(t, "", records[2][4])
}

func TestNotificationRows(t *testing.T) {
	rows := share.NotificationRows([]domain.Notification{{
		ID: "o1:x", OfferID: "o1", Timestamp: t0,
		Baseline: 700, Current: 650, Delta: -50, Percent: -7.142857,
	}})
	require.Len(t, rows, 1)
	assert.Equal(t, "-50", rows[0]["delta"])
	assert.Equal(t, "-7.14", rows[0]["percent"])
	assert.Equal(t, "2026-03-01T12:00:00Z", rows[0]["timestamp"])
}

func TestExporterUploadsUnderDatedPrefix(t *testing.T) {
	ctx := context.Background()
	blobs := &memoryBlobs{}
	e := share.NewExporter(blobs, "/exports/")

	jsonPath, err := e.ExportJSON(ctx, "compare", sampleOffers())
	require.NoError(t, err)
	csvPath, err := e.ExportCSV(ctx, "compare", share.OfferRows(sampleOffers()), share.OfferColumns)
	require.NoError(t, err)

	assert.Regexp(t, `^exports/\d{4}-\d{2}-\d{2}/compare\.json$`, jsonPath)
	assert.Regexp(t, `^exports/\d{4}-\d{2}-\d{2}/compare\.csv$`, csvPath)
	assert.Equal(t, "application/json", blobs.contentTypes[jsonPath])
	assert.Equal(t, "text/csv", blobs.contentTypes[csvPath])
	assert.Contains(t, string(blobs.objects[jsonPath]), `"tripOptionId": "t1"`)
}

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, io.Reader, string) error { return assert.AnError }

func TestExporterReturnsUploadError(t *testing.T) {
	_, err := share.NewExporter(failingBlobs{}, "exports").ExportJSON(context.Background(), "x", 1)
	assert.ErrorIs(t, err, assert.AnError)
}
