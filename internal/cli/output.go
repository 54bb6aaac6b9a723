package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/xjournal/internal/models"
	"github.com/dmitrijs2005/xjournal/internal/syncengine"
)

// entryView is the JSON form of an entry printed by list and show.
type entryView struct {
	ID            string `json:"id"`
	JournalID     string `json:"journal_id"`
	Title         string `json:"title"`
	Content       string `json:"content,omitempty"`
	CreatedAt     string `json:"created_at"`
	LastModified  string `json:"last_modified"`
	SyncStatus    string `json:"sync_status"`
	LastSyncError string `json:"last_sync_error,omitempty"`
}

func toView(e models.JournalEntry, withContent bool) entryView {
	v := entryView{
		ID:            e.ID,
		JournalID:     e.JournalID,
		Title:         e.Title,
		CreatedAt:     e.Created().Format(time.RFC3339),
		LastModified:  time.Unix(e.LastModified, 0).UTC().Format(time.RFC3339),
		SyncStatus:    e.SyncStatus.String(),
		LastSyncError: string(e.LastSyncError),
	}
	if withContent {
		v.Content = e.Content
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEntries(w io.Writer, format string, entries []models.JournalEntry) error {
	if format == "json" {
		views := make([]entryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, toView(e, false))
		}
		return writeJSON(w, views)
	}

	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s  %s  %-12s %s\n",
			e.ID, e.Created().Format(time.DateTime), e.SyncStatus, e.Title); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(w io.Writer, format string, e models.JournalEntry) error {
	if format == "json" {
		return writeJSON(w, toView(e, true))
	}

	v := toView(e, true)
	fmt.Fprintf(w, "ID:       %s\n", v.ID)
	fmt.Fprintf(w, "Title:    %s\n", v.Title)
	fmt.Fprintf(w, "Created:  %s\n", v.CreatedAt)
	fmt.Fprintf(w, "Modified: %s\n", v.LastModified)
	fmt.Fprintf(w, "Status:   %s\n", v.SyncStatus)
	if v.LastSyncError != "" {
		fmt.Fprintf(w, "Failure:  %s\n", v.LastSyncError)
	}
	_, err := fmt.Fprintf(w, "\n%s\n", v.Content)
	return err
}

func printReports(w io.Writer, format string, reports []syncengine.Report) error {
	if format == "json" {
		return writeJSON(w, reports)
	}
	for _, r := range reports {
		if _, err := fmt.Fprintf(w, "%s: synced=%d failed=%d deferred=%d skipped=%d superseded=%d uploads=%d\n",
			r.JournalID, r.Synced, r.Failed, r.Deferred, r.Skipped, r.Superseded, r.Uploads); err != nil {
			return err
		}
	}
	return nil
}
