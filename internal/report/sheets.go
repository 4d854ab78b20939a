package report

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"rentadesk/internal/models"
)

const sheetsRange = "Reservations!A:J"

// SheetsService mirrors the reservation ledger into a Google
// spreadsheet staff already work in. The mirror is best-effort: sync
// failures are logged and retried on the next run, never surfaced to
// customers.
type SheetsService struct {
	svc           *sheets.Service
	spreadsheetID string
	log           *zerolog.Logger

	mu       sync.Mutex
	rowCache map[string]int // public id -> sheet row
}

// NewSheetsService authenticates with a service-account credentials
// file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse sheets credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsService{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		log:           logger,
		rowCache:      make(map[string]int),
	}, nil
}

// SyncReservations rewrites the mirror sheet with the current blocking
// reservations. A full rewrite keeps the sheet consistent without
// tracking per-row diffs.
func (s *SheetsService) SyncReservations(ctx context.Context, reservations []models.Reservation) error {
	active := s.filterBlocking(reservations)

	values := make([][]interface{}, 0, len(active)+1)
	header := make([]interface{}, len(reservationColumns))
	for i, c := range reservationColumns {
		header[i] = c
	}
	values = append(values, header)

	s.mu.Lock()
	s.rowCache = make(map[string]int, len(active))
	for i := range active {
		values = append(values, reservationRowValues(&active[i]))
		// Row 1 is the header; data starts at row 2.
		s.rowCache[active[i].PublicID] = i + 2
	}
	s.mu.Unlock()

	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, sheetsRange, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, sheetsRange, &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}

	s.log.Info().Int("rows", len(active)).Msg("reservations mirrored to sheets")
	return nil
}

// UpdateReservationRow patches a single reservation in place when its
// row is known, falling back to a no-op otherwise (the next full sync
// picks it up).
func (s *SheetsService) UpdateReservationRow(ctx context.Context, r *models.Reservation) error {
	row, ok := s.getCachedRow(r.PublicID)
	if !ok {
		return nil
	}

	target := fmt.Sprintf("Reservations!A%d:J%d", row, row)
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, target, &sheets.ValueRange{
		Values: [][]interface{}{reservationRowValues(r)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return nil
}

func (s *SheetsService) filterBlocking(reservations []models.Reservation) []models.Reservation {
	active := make([]models.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if models.CategoryOf(r.Status) == models.CategoryBlocking {
			active = append(active, r)
		}
	}
	return active
}

func (s *SheetsService) getCachedRow(publicID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[publicID]
	return row, ok
}

func (s *SheetsService) setCachedRow(publicID string, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[publicID] = row
}

// ClearCache drops the row cache, forcing the next update through a
// full sync.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[string]int)
}
