package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alirezadp10/market-trends/internal/models"
)

// ReadEventsCSV parses a manually curated events file. The expected header
// is "Date,Event" with Jalali "YYYY-MM" date labels.
func ReadEventsCSV(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()
	return parseEvents(f)
}

func parseEvents(r io.Reader) ([]models.Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read events header: %w", err)
	}
	dateCol, titleCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Date":
			dateCol = i
		case "Event":
			titleCol = i
		}
	}
	if dateCol < 0 || titleCol < 0 {
		return nil, fmt.Errorf("events file missing Date/Event columns: %v", header)
	}

	var events []models.Event
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read events row: %w", err)
		}
		if len(record) <= dateCol || len(record) <= titleCol {
			continue
		}
		date := strings.TrimSpace(record[dateCol])
		title := strings.TrimSpace(record[titleCol])
		if date == "" || title == "" {
			continue
		}
		events = append(events, models.Event{Date: date, Title: title})
	}
	return events, nil
}

// ImportEvents upserts events into the market_events table and returns the
// number of new rows.
func (s *Store) ImportEvents(ctx context.Context, events []models.Event) (int, error) {
	const query = `INSERT OR IGNORE INTO market_events (date, title) VALUES (:date, :title)`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for i := range events {
		res, err := tx.NamedExecContext(ctx, query, &events[i])
		if err != nil {
			return inserted, fmt.Errorf("failed to insert event: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// LoadEvents returns all stored events ordered by date.
func (s *Store) LoadEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.SelectContext(ctx, &events, "SELECT * FROM market_events ORDER BY date"); err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}

// EventsByDate groups event titles by their date label.
func EventsByDate(events []models.Event) map[string][]string {
	byDate := make(map[string][]string)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e.Title)
	}
	return byDate
}
