package sheetsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/frahmantamala/rt-lending/internal/core/events"
)

type SheetsLogConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
}

// SheetsLog appends one row per change to a Google Sheets range:
// [timestamp, action, entity id, payload json].
type SheetsLog struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	writeRange    string
	logger        *slog.Logger
}

// NewSheetsLog builds the Sheets client. Extra options are appended after
// the credentials option, which lets tests point it at a fake endpoint.
func NewSheetsLog(ctx context.Context, cfg SheetsLogConfig, logger *slog.Logger, opts ...option.ClientOption) (*SheetsLog, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	writeRange := cfg.Range
	if writeRange == "" {
		writeRange = "ChangeLog!A:D"
	}

	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsLog{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		writeRange:    writeRange,
		logger:        logger,
	}, nil
}

func (s *SheetsLog) Name() string {
	return "sheets-log"
}

func (s *SheetsLog) Deliver(ctx context.Context, event *events.ChangeEvent) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	row := []interface{}{
		event.OccurredAt().UTC().Format(time.RFC3339),
		event.Action,
		event.EntityID,
		string(payload),
	}

	resp, err := s.values.Append(s.spreadsheetID, s.writeRange, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append change row: %w", err)
	}

	if resp.Updates != nil {
		s.logger.Debug("change row appended",
			"action", event.Action,
			"entity_id", event.EntityID,
			"updated_range", resp.Updates.UpdatedRange)
	}
	return nil
}
