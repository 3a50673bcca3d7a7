package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

// Exporter serializes reconciliation snapshots as newline-delimited JSON and
// uploads them to blob storage for long-term retention. Each snapshot becomes
// one object keyed by wallet and capture time.
type Exporter struct {
	writer domain.BlobWriter
	logger *slog.Logger
}

// NewExporter creates an Exporter that uploads through the given writer.
func NewExporter(writer domain.BlobWriter, logger *slog.Logger) *Exporter {
	return &Exporter{
		writer: writer,
		logger: logger,
	}
}

// snapshotRecord is one JSONL line. Kind discriminates the row type so a
// single object holds the header plus every derived row.
type snapshotRecord struct {
	Kind     string             `json:"kind"` // header, group, daily, position
	Wallet   string             `json:"wallet,omitempty"`
	TakenAt  string             `json:"taken_at,omitempty"`
	TotalPnL *decimal.Decimal   `json:"total_pnl,omitempty"`
	Group    *domain.TradeGroup `json:"group,omitempty"`
	Daily    *domain.DailyPnL   `json:"daily,omitempty"`
	Position *domain.Position   `json:"position,omitempty"`
}

// Export uploads the snapshot as a JSONL object and returns the object key.
func (e *Exporter) Export(ctx context.Context, snap domain.Snapshot) (string, error) {
	key := exportPath(snap)

	records := make([]snapshotRecord, 0, 1+len(snap.Groups)+len(snap.Daily)+len(snap.Positions))
	records = append(records, snapshotRecord{
		Kind:     "header",
		Wallet:   snap.Wallet,
		TakenAt:  snap.TakenAt.UTC().Format("2006-01-02T15:04:05Z"),
		TotalPnL: &snap.TotalPnL,
	})
	for i := range snap.Groups {
		records = append(records, snapshotRecord{Kind: "group", Group: &snap.Groups[i]})
	}
	for i := range snap.Daily {
		records = append(records, snapshotRecord{Kind: "daily", Daily: &snap.Daily[i]})
	}
	for i := range snap.Positions {
		records = append(records, snapshotRecord{Kind: "position", Position: &snap.Positions[i]})
	}

	payload, err := marshalJSONL(records)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal snapshot: %w", err)
	}

	if err := e.writer.Put(ctx, key, bytes.NewReader(payload), "application/x-ndjson"); err != nil {
		return "", err
	}

	e.logger.Info("snapshot exported",
		"key", key,
		"groups", len(snap.Groups),
		"positions", len(snap.Positions),
		"bytes", len(payload))

	return key, nil
}

// exportPath builds the object key for a snapshot, partitioned by wallet and
// capture time so exports for one account list together chronologically.
func exportPath(snap domain.Snapshot) string {
	return fmt.Sprintf("snapshots/%s/%s.jsonl",
		snap.Wallet,
		snap.TakenAt.UTC().Format("2006-01-02T150405Z"))
}

// marshalJSONL encodes a slice of records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
