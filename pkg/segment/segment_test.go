package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracebox-dev/tracebox/internal/wire"
)

func TestNewValidatesGrammar(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"empty", "", ErrEmpty},
		{"too long", strings.Repeat("a", MaxLength+1), ErrTooLong},
		{"at max length", strings.Repeat("a", MaxLength-1), nil},
		{"one over max length", strings.Repeat("a", MaxLength), ErrTooLong},
		{"control character", "name\x01", ErrInvalidCharacter},
		{"plain word", "my-document", nil},
		{"with spaces and digits", "Invoice 2026 Q1", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.text)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSegmentWireRoundTrip(t *testing.T) {
	s, err := New("quarterly-report")
	require.NoError(t, err)

	w := wire.NewWriter()
	s.EncodeTo(w)

	r := wire.NewReader(w.Bytes())
	var decoded Segment
	require.NoError(t, decoded.DecodeFrom(r))
	require.Equal(t, s, decoded)
	require.NoError(t, r.RequireConsumed())
}
