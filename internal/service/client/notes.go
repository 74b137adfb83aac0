package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oshokin/light-orchestra/internal/service/common"
)

// errBadNote is returned for melody arguments not shaped like "hz:ms".
var errBadNote = errors.New(`note must look like "hz:ms"`)

// ParseNotes parses melody arguments such as "262:200 330:200 0:100".
// Validation of the values themselves is left to the server.
func ParseNotes(args []string) ([]common.Note, error) {
	notes := make([]common.Note, 0, len(args))

	for _, arg := range args {
		freq, ms, found := strings.Cut(arg, ":")
		if !found {
			return nil, fmt.Errorf("%w: %q", errBadNote, arg)
		}

		hz, err := strconv.ParseFloat(strings.TrimSpace(freq), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errBadNote, arg)
		}

		duration, err := strconv.ParseInt(strings.TrimSpace(ms), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errBadNote, arg)
		}

		notes = append(notes, common.Note{FrequencyHz: hz, Ms: duration})
	}

	return notes, nil
}
