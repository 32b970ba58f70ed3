// package formatter renders pass summaries and run history as text, Markdown, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/natefinch/atomic"
)

// Format names an output encoding.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	Markdown Format = "markdown"
	CSV      Format = "csv"
)

// SummaryFormats and HistoryFormats list the encodings each renderer accepts.
var (
	SummaryFormats = []Format{Text, JSON, Markdown}
	HistoryFormats = []Format{Text, JSON, CSV}
)

const timeLayout = "2006-01-02 15:04:05"

// ParseFormat returns the [Format] named by s if it is one of allowed.
func ParseFormat(s string, allowed []Format) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return Text, nil
	}

	names := make([]string, len(allowed))
	for i, a := range allowed {
		if f == a {
			return f, nil
		}
		names[i] = string(a)
	}
	return "", fmt.Errorf("%w: format %q (expected one of %s)", shared.ErrInvalidFlag, s, strings.Join(names, ", "))
}

// FormatSummary renders a pass summary in the given format.
func FormatSummary(summary *models.SyncSummary, format Format) ([]byte, error) {
	if summary == nil {
		return nil, fmt.Errorf("%w: nil summary", shared.ErrInvalidInput)
	}

	switch format {
	case Text, "":
		return SummaryToText(summary), nil
	case JSON:
		return shared.MarshalJSON(summary, true)
	case Markdown:
		return SummaryToMarkdown(summary), nil
	default:
		return nil, fmt.Errorf("%w: unsupported summary format %q", shared.ErrInvalidFlag, format)
	}
}

// SummaryToText renders a summary as aligned plain text.
func SummaryToText(s *models.SyncSummary) []byte {
	var buf bytes.Buffer

	if s.DryRun {
		buf.WriteString("Dry run: nothing was written\n")
	}
	fmt.Fprintf(&buf, "Playlist: %s\n", collectionLabel(s))
	fmt.Fprintf(&buf, "Liked:      %d\n", s.LikedCount)
	fmt.Fprintf(&buf, "Candidates: %d\n", s.CandidateCount)
	fmt.Fprintf(&buf, "Skipped:    %d\n", s.SkippedCount)
	if !s.DryRun {
		fmt.Fprintf(&buf, "Written:    %d\n", s.WrittenCount)
	}
	if s.RejectedCount > 0 {
		fmt.Fprintf(&buf, "Rejected:   %d\n", s.RejectedCount)
	}
	if s.Fingerprint != "" {
		fmt.Fprintf(&buf, "Fingerprint: %s\n", s.Fingerprint)
	}

	return buf.Bytes()
}

// SummaryToMarkdown renders a summary as a Markdown table.
func SummaryToMarkdown(s *models.SyncSummary) []byte {
	var buf bytes.Buffer

	title := s.CollectionName
	if title == "" {
		title = "Liked Songs Mirror"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)

	if s.DryRun {
		buf.WriteString("_Dry run: nothing was written._\n\n")
	}
	if s.CollectionID != "" {
		fmt.Fprintf(&buf, "**Playlist ID**: `%s`", s.CollectionID)
		if s.Created {
			buf.WriteString(" (created)")
		}
		buf.WriteString("\n\n")
	}

	buf.WriteString("| Metric | Count |\n| --- | ---: |\n")
	fmt.Fprintf(&buf, "| Liked | %d |\n", s.LikedCount)
	fmt.Fprintf(&buf, "| Candidates | %d |\n", s.CandidateCount)
	fmt.Fprintf(&buf, "| Skipped | %d |\n", s.SkippedCount)
	if !s.DryRun {
		fmt.Fprintf(&buf, "| Written | %d |\n", s.WrittenCount)
	}
	if s.RejectedCount > 0 {
		fmt.Fprintf(&buf, "| Rejected | %d |\n", s.RejectedCount)
	}

	return buf.Bytes()
}

func collectionLabel(s *models.SyncSummary) string {
	switch {
	case s.CollectionID == "" && s.CollectionName == "":
		return "(unresolved)"
	case s.CollectionID == "":
		return s.CollectionName + " (not created)"
	case s.Created:
		return fmt.Sprintf("%s (ID: %s, created)", s.CollectionName, s.CollectionID)
	default:
		return fmt.Sprintf("%s (ID: %s)", s.CollectionName, s.CollectionID)
	}
}

// runRecord is the JSON shape of a recorded pass.
type runRecord struct {
	ID         string             `json:"id"`
	Sequence   int                `json:"sequence"`
	Status     models.RunStatus   `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	Duration   string             `json:"duration,omitempty"`
	Error      string             `json:"error,omitempty"`
	Summary    models.SyncSummary `json:"summary"`
}

func toRecord(r *models.SyncRun) runRecord {
	rec := runRecord{
		ID:         r.ID(),
		Sequence:   r.Sequence(),
		Status:     r.Status(),
		StartedAt:  r.StartedAt().UTC(),
		FinishedAt: r.FinishedAt(),
		Error:      r.ErrorMessage(),
		Summary:    r.Summary(),
	}
	if r.FinishedAt() != nil {
		rec.Duration = r.Duration().Round(time.Millisecond).String()
	}
	return rec
}

// FormatHistory renders recorded passes in the given format.
func FormatHistory(runs []*models.SyncRun, format Format) ([]byte, error) {
	switch format {
	case Text, "":
		return HistoryToText(runs), nil
	case JSON:
		records := make([]runRecord, len(runs))
		for i, r := range runs {
			records[i] = toRecord(r)
		}
		return shared.MarshalJSON(records, true)
	case CSV:
		return HistoryToCSV(runs)
	default:
		return nil, fmt.Errorf("%w: unsupported history format %q", shared.ErrInvalidFlag, format)
	}
}

// HistoryToText renders one line per pass, newest first as given.
func HistoryToText(runs []*models.SyncRun) []byte {
	if len(runs) == 0 {
		return []byte("No recorded passes\n")
	}

	var buf bytes.Buffer
	for _, r := range runs {
		s := r.Summary()
		fmt.Fprintf(&buf, "#%d  %s  %-9s  liked=%d written=%d skipped=%d",
			r.Sequence(), r.StartedAt().Local().Format(timeLayout), r.Status(), s.LikedCount, s.WrittenCount, s.SkippedCount)
		if s.DryRun {
			buf.WriteString("  (dry run)")
		}
		if r.ErrorMessage() != "" {
			fmt.Fprintf(&buf, "  error: %s", r.ErrorMessage())
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// HistoryToCSV converts recorded passes to CSV with columns:
// ID, Sequence, Status, StartedAt, Duration, Collection, Liked, Candidates, Written, Skipped, DryRun, Error
func HistoryToCSV(runs []*models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Sequence", "Status", "StartedAt", "Duration", "Collection", "Liked", "Candidates", "Written", "Skipped", "DryRun", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range runs {
		rec := toRecord(r)
		record := []string{
			rec.ID,
			strconv.Itoa(rec.Sequence),
			string(rec.Status),
			rec.StartedAt.Format(time.RFC3339),
			rec.Duration,
			rec.Summary.CollectionID,
			strconv.Itoa(rec.Summary.LikedCount),
			strconv.Itoa(rec.Summary.CandidateCount),
			strconv.Itoa(rec.Summary.WrittenCount),
			strconv.Itoa(rec.Summary.SkippedCount),
			strconv.FormatBool(rec.Summary.DryRun),
			rec.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFile writes rendered output to path atomically.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
