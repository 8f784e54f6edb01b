package history

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voicetype/internal/domain"
)

const (
	header    = "| Date | Time | Model | Style | Text |\n"
	separator = "|------|------|-------|-------|------|\n"

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

var sanitizer = strings.NewReplacer("|", "/", "\r\n", " ", "\r", " ", "\n", " ")

// Log is an append-only markdown table of delivered sessions.
type Log struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Path() string { return l.path }

// Sanitize keeps text on a single table row.
func Sanitize(text string) string {
	return strings.TrimSpace(sanitizer.Replace(text))
}

// Append writes one row, creating the file and its header when needed.
func (l *Log) Append(record domain.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history %q: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat history: %w", err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(header)
		b.WriteString(separator)
	}
	at := record.At
	if at.IsZero() {
		at = time.Now()
	}
	fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
		at.Format(dateLayout),
		at.Format(timeLayout),
		Sanitize(record.Model),
		Sanitize(record.Style),
		Sanitize(record.Text),
	)

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// AppendAsync appends in the background. The channel yields the result.
func (l *Log) AppendAsync(record domain.HistoryRecord) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- l.Append(record)
		close(done)
	}()
	return done
}

// Tail returns up to n of the most recent records, oldest first.
func (l *Log) Tail(n int) ([]domain.HistoryRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []domain.HistoryRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		record, ok := parseRow(scanner.Text())
		if !ok {
			continue
		}
		records = append(records, record)
		if len(records) > n {
			records = records[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}
	return records, nil
}

func parseRow(line string) (domain.HistoryRecord, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
		return domain.HistoryRecord{}, false
	}
	cells := strings.Split(strings.Trim(line, "|"), "|")
	if len(cells) != 5 {
		return domain.HistoryRecord{}, false
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}

	at, err := time.ParseInLocation(dateLayout+" "+timeLayout, cells[0]+" "+cells[1], time.Local)
	if err != nil {
		return domain.HistoryRecord{}, false
	}
	return domain.HistoryRecord{At: at, Model: cells[2], Style: cells[3], Text: cells[4]}, true
}
