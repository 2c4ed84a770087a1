package idgen

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefix       = "REG-"
	suffixLength = 8
)

var pattern = regexp.MustCompile(`^REG-\d{8}-[A-Z0-9]{8}$`)

// New returns an id of the form REG-YYYYMMDD-XXXXXXXX for the given instant.
// The suffix comes from the random bits of a v4 UUID.
func New(now time.Time) string {
	return prefix + now.UTC().Format("20060102") + "-" + randomSuffix()
}

func Valid(id string) bool {
	return pattern.MatchString(id)
}

func randomSuffix() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[8:])
	s := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(s) < suffixLength {
		s = strings.Repeat("0", suffixLength-len(s)) + s
	}
	return s[len(s)-suffixLength:]
}
