package mailbox

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// fileExt is the suffix of every message file.
	fileExt = ".msg"

	// keyDigits is the zero-padded width of a message key in its file name.
	keyDigits = 19
)

// Message is a single entry of the log.
type Message struct {
	// ID is the ordering key: Unix nanoseconds at append time.
	ID     int64  `json:"id" yaml:"id"`
	Author string `json:"author" yaml:"author"`
	Body   string `json:"body" yaml:"body"`
}

// Time returns the append time encoded in the message ID.
func (m Message) Time() time.Time {
	return time.Unix(0, m.ID)
}

// record is the on-disk JSON form of a message body.
type record struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// FileName returns the file name used for a message key.
func FileName(key int64) string {
	return fmt.Sprintf("%0*d%s", keyDigits, key, fileExt)
}

// ParseKey extracts the ordering key from a message file name.
// It reports false for temp residue and foreign files.
func ParseKey(name string) (int64, bool) {
	digits, ok := strings.CutSuffix(name, fileExt)
	if !ok || len(digits) != keyDigits {
		return 0, false
	}
	key, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || key < 0 {
		return 0, false
	}
	return key, true
}

// ListOptions selects which messages List returns.
type ListOptions struct {
	// Since keeps only messages with a key strictly greater than Since.
	Since int64
	// Last keeps only the newest Last messages after the other filters.
	// Zero keeps all of them.
	Last int
	// ExcludeAuthor drops messages written by this author.
	ExcludeAuthor string
}
