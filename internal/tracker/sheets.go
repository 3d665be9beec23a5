// Package tracker mirrors the post history into a Google Sheet for manual
// review. The mirror is best-effort and never blocks or fails a post attempt.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/twitter-agent/internal/config"
	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/pkg/logger"
)

// SheetColumns defines the column headers for the post history sheet
var SheetColumns = []string{
	"Record ID",
	"Campaign ID",
	"Campaign Subject",
	"Status",
	"Tweet",
	"Hashtags",
	"Tweet ID",
	"Error",
	"Posted At",
}

// SheetsTracker appends post records to a Google Sheet
type SheetsTracker struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logger.Logger
}

// New creates a new Google Sheets tracker, or nil when disabled
func New(cfg config.TrackerConfig, log *logger.Logger) (*SheetsTracker, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	ctx := context.Background()

	var srv *sheets.Service
	var err error

	// Try service account JSON first (for env var injection)
	if cfg.ServiceAccountJSON != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	} else if cfg.CredentialsFile != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		return nil, fmt.Errorf("no Google credentials provided: set credentials_file or service_account_json")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Posts"
	}

	return &SheetsTracker{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		log:           log.WithComponent("sheets-tracker"),
	}, nil
}

// InitializeSheet writes the header row if the sheet is empty
func (t *SheetsTracker) InitializeSheet(ctx context.Context) error {
	readRange := fmt.Sprintf("%s!A1:I1", t.sheetName)
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(resp.Values) == 0 {
		t.log.Info().Msg("Initializing sheet with headers")
		header := make([]interface{}, len(SheetColumns))
		for i, col := range SheetColumns {
			header[i] = col
		}
		_, err = t.service.Spreadsheets.Values.Update(
			t.spreadsheetID,
			fmt.Sprintf("%s!A1", t.sheetName),
			&sheets.ValueRange{Values: [][]interface{}{header}},
		).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return nil
}

// Append mirrors one post record into the sheet
func (t *SheetsTracker) Append(ctx context.Context, rec *models.PostRecord, campaignSubject string) error {
	campaignID := ""
	if rec.CampaignID != nil {
		campaignID = fmt.Sprintf("%d", *rec.CampaignID)
	}

	row := []interface{}{
		rec.ID,
		campaignID,
		campaignSubject,
		string(rec.Status),
		rec.Text,
		strings.Join(rec.HashtagsUsed, " "),
		rec.TweetID,
		rec.ErrorMessage,
		rec.PostedAt.Format(time.RFC3339),
	}

	_, err := t.service.Spreadsheets.Values.Append(
		t.spreadsheetID,
		fmt.Sprintf("%s!A:I", t.sheetName),
		&sheets.ValueRange{Values: [][]interface{}{row}},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	t.log.Debug().
		Uint("record_id", rec.ID).
		Msg("Post record mirrored to sheet")

	return nil
}
