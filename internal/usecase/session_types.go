package usecase

import (
	"strings"
	"time"
)

// sessionLock is the content of the lock marker. Its presence alone means a
// session is open; the content only feeds status and history.
type sessionLock struct {
	ID        string
	StartedAt time.Time
}

func (l sessionLock) encode() []byte {
	return []byte(l.ID + "\n" + l.StartedAt.Format(time.RFC3339) + "\n")
}

// decodeSessionLock tolerates empty or foreign content: a lock written by a
// crashed or older process still has to be stoppable.
func decodeSessionLock(payload []byte) sessionLock {
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	lock := sessionLock{ID: strings.TrimSpace(lines[0])}
	if len(lines) > 1 {
		if startedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[1])); err == nil {
			lock.StartedAt = startedAt
		}
	}
	return lock
}
