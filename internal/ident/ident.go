// Package ident generates the opaque identifiers used to name log
// sessions and individual log entries.
//
// Identifiers are treated as opaque tokens by every consumer: the only
// guarantees are practical uniqueness within a process lifetime and
// safety for use as a filename or key component (lowercase base-36
// plus underscore). Callers must not parse them or assume a fixed
// length.
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrSourceUnavailable is returned when the platform randomness source
// cannot be read. It is not retried internally; callers should treat it
// as fatal to session or entry creation.
var ErrSourceUnavailable = errors.New("randomness source unavailable")

// base36 is the alphabet shared by the timestamp prefix and the random
// suffix. Keeping both in the same alphabet keeps the whole token
// filename-safe.
const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	sessionSuffixLen = 6
	entrySuffixLen   = 10
)

// SessionID returns a new session identifier: a base-36 millisecond
// timestamp, an underscore, and a random base-36 suffix. The suffix
// entropy comes from crypto/rand, so tokens are not predictable even
// though the format matches the legacy time+pseudo-random scheme.
func SessionID() (string, error) {
	return timeRandomID(sessionSuffixLen)
}

// EntryID returns a new entry identifier. Same format as SessionID but
// with a longer random suffix, so entries created within the same
// millisecond stay distinct at high append rates. The timestamp prefix
// keeps entries roughly sortable by creation order.
func EntryID() (string, error) {
	return timeRandomID(entrySuffixLen)
}

func timeRandomID(suffixLen int) (string, error) {
	suffix, err := gonanoid.Generate(base36, suffixLen)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + suffix, nil
}

// UUID returns a random RFC 4122 identifier with the dashes stripped,
// for callers that want a standard-width token instead of the sortable
// time-prefixed form. The result still matches the [0-9a-z_] charset.
func UUID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return strings.ReplaceAll(u.String(), "-", ""), nil
}
