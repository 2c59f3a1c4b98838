package store

import (
	"context"
	"strings"
	"testing"

	"github.com/alirezadp10/market-trends/internal/models"
)

func TestParseEvents(t *testing.T) {
	csvData := `Date,Event
1397-02,خروج آمریکا از برجام
1401-06,اعتراضات سراسری
,missing date
1400-01,
1402-12,توافق ایران و عربستان
`
	events, err := parseEvents(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Failed to parse events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, but got %d", len(events))
	}
	if events[0].Date != "1397-02" {
		t.Errorf("Expected 1397-02, but got %s", events[0].Date)
	}
	if events[0].Title != "خروج آمریکا از برجام" {
		t.Errorf("Unexpected title: %s", events[0].Title)
	}
}

func TestParseEventsMissingColumns(t *testing.T) {
	if _, err := parseEvents(strings.NewReader("When,What\n1400-01,x\n")); err == nil {
		t.Error("Expected error for missing columns, but got none")
	}
}

func TestImportAndLoadEvents(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	events := []models.Event{
		{Date: "1397-02", Title: "خروج آمریکا از برجام"},
		{Date: "1401-06", Title: "اعتراضات سراسری"},
	}
	inserted, err := s.ImportEvents(ctx, events)
	if err != nil {
		t.Fatalf("Failed to import events: %v", err)
	}
	if inserted != 2 {
		t.Errorf("Expected 2 inserted, but got %d", inserted)
	}

	// Importing again is a no-op.
	inserted, err = s.ImportEvents(ctx, events)
	if err != nil {
		t.Fatalf("Failed to re-import events: %v", err)
	}
	if inserted != 0 {
		t.Errorf("Expected 0 inserted, but got %d", inserted)
	}

	loaded, err := s.LoadEvents(ctx)
	if err != nil {
		t.Fatalf("Failed to load events: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 events, but got %d", len(loaded))
	}

	byDate := EventsByDate(loaded)
	if len(byDate["1397-02"]) != 1 {
		t.Errorf("Expected 1 event for 1397-02, but got %d", len(byDate["1397-02"]))
	}
}
