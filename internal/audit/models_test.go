package audit

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "console/pkg/domain-errors"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
		wantErr  bool
	}{
		{name: "defaults", query: "", wantPage: 0, wantSize: DefaultPageSize},
		{name: "explicit", query: "page=3&size=50", wantPage: 3, wantSize: 50},
		{name: "size clamped high", query: "size=5000", wantSize: MaxPageSize},
		{name: "zero size uses default", query: "size=0", wantSize: DefaultPageSize},
		{name: "negative page", query: "page=-1", wantErr: true},
		{name: "non-numeric size", query: "size=lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			w, err := ParseWindow(q)
			if tt.wantErr {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, w.Page)
			assert.Equal(t, tt.wantSize, w.Size)
		})
	}
}

func TestParseSearch(t *testing.T) {
	t.Run("plain dates cover whole days", func(t *testing.T) {
		q := url.Values{"from": {"2024-03-01"}, "to": {"2024-03-02"}, "action": {" create_user "}}
		sq, err := ParseSearch(q)
		require.NoError(t, err)

		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), sq.From)
		assert.Equal(t, time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC), sq.To)
		assert.Equal(t, "CREATE_USER", sq.Action)
	})

	t.Run("timestamps", func(t *testing.T) {
		q := url.Values{"from": {"2024-03-01T10:00:00Z"}, "username": {"alice"}}
		sq, err := ParseSearch(q)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), sq.From)
		assert.True(t, sq.To.IsZero())
		assert.Equal(t, "alice", sq.Username)
	})

	t.Run("same day range is accepted", func(t *testing.T) {
		_, err := ParseSearch(url.Values{"from": {"2024-03-01"}, "to": {"2024-03-01"}})
		assert.NoError(t, err)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := ParseSearch(url.Values{"from": {"2024-03-02"}, "to": {"2024-03-01"}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("garbage time", func(t *testing.T) {
		_, err := ParseSearch(url.Values{"to": {"yesterday"}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
