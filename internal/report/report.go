// Package report renders a Markdown summary of the migration ledger.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"synomigrate/internal/ledger"
)

// Generate renders the ledger's current state as a Markdown document.
func Generate(ctx context.Context, store *ledger.Store) (string, error) {
	stats, err := store.Statistics(ctx)
	if err != nil {
		return "", err
	}
	problems, err := store.FailedFilesWithErrors(ctx)
	if err != nil {
		return "", err
	}
	albums, err := store.Albums(ctx)
	if err != nil {
		return "", err
	}

	var failed, unsupported []ledger.FileRecord
	for _, record := range problems {
		switch record.Status {
		case ledger.StatusFailed:
			failed = append(failed, record)
		case ledger.StatusUnsupported:
			unsupported = append(unsupported, record)
		}
	}

	// Album names come from user input on the NAS; a locale-aware sort
	// keeps accented names where people expect them.
	collator := collate.New(language.English, collate.Loose)
	sort.SliceStable(albums, func(i, j int) bool {
		return collator.CompareString(albums[i].Name, albums[j].Name) < 0
	})

	var b strings.Builder
	b.WriteString("# Migration Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count |\n")
	b.WriteString("| --- | ---: |\n")
	fmt.Fprintf(&b, "| Total files | %d |\n", stats.Total)
	fmt.Fprintf(&b, "| Migrated | %d |\n", stats.Success)
	fmt.Fprintf(&b, "| Failed | %d |\n", stats.Failed)
	fmt.Fprintf(&b, "| Unsupported | %d |\n", stats.Unsupported)
	fmt.Fprintf(&b, "| Success rate | %s |\n\n", successRate(stats))

	if len(failed) > 0 {
		b.WriteString("## Failed Files\n\n")
		b.WriteString("| File | Error |\n")
		b.WriteString("| --- | --- |\n")
		for _, record := range failed {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(record.SourcePath), escapeCell(record.ErrorMessage))
		}
		b.WriteString("\n")
	}

	if len(unsupported) > 0 {
		b.WriteString("## Unsupported Files\n\n")
		b.WriteString("| File | Reason |\n")
		b.WriteString("| --- | --- |\n")
		for _, record := range unsupported {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(record.SourcePath), escapeCell(record.ErrorMessage))
		}
		b.WriteString("\n")
	}

	if len(albums) > 0 {
		b.WriteString("## Albums\n\n")
		b.WriteString("| Synology ID | Name | Immich Album |\n")
		b.WriteString("| ---: | --- | --- |\n")
		for _, album := range albums {
			immichID := album.ImmichAlbumID
			if immichID == "" {
				immichID = "-"
			}
			fmt.Fprintf(&b, "| %d | %s | %s |\n", album.SynologyAlbumID, escapeCell(album.Name), escapeCell(immichID))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// Write renders the report and writes it to path.
func Write(ctx context.Context, store *ledger.Store, path string) error {
	content, err := Generate(ctx, store)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func successRate(stats ledger.Statistics) string {
	if stats.Total == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(stats.Success)/float64(stats.Total)*100)
}

// escapeCell keeps pipes and newlines in file paths or error text from
// breaking the Markdown table.
func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
