package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/light-orchestra/internal/service/common"
)

// TestParseNotes accepts hz:ms pairs and rejects anything else.
func TestParseNotes(t *testing.T) {
	t.Parallel()

	notes, err := ParseNotes([]string{"262:200", "329.63:150", " 0 : 50 "})
	require.NoError(t, err)
	require.Equal(t, []common.Note{
		{FrequencyHz: 262, Ms: 200},
		{FrequencyHz: 329.63, Ms: 150},
		{FrequencyHz: 0, Ms: 50},
	}, notes)

	for _, bad := range []string{"262", "a:200", "262:1.5", ":"} {
		_, err = ParseNotes([]string{bad})
		require.ErrorIs(t, err, errBadNote, bad)
	}
}
