package requesttime

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"console/pkg/requestcontext"
	"console/pkg/testutil"
)

func TestWithClock(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	var seen time.Time
	h := WithClock(func() time.Time { return fixed })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Now(r.Context())
	}))
	testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/"))
	assert.Equal(t, fixed, seen)
}
