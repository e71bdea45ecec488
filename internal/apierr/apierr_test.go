package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusBadRequest, KindValidation},
		{http.StatusForbidden, KindValidation},
		{http.StatusNotFound, KindValidation},
		{http.StatusRequestTimeout, KindTransient},
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, KindFromStatus(tt.status))
		})
	}
}

func TestError_IsMatchesSentinelOfKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindSessionExpired, Op: "refresh"})

	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, KindSessionExpired, KindOf(err))
}

func TestFromResponse_KeepsBodyVerbatim(t *testing.T) {
	body := `{"title":["This field is required."]}`
	err := FromResponse("POST /tasks/tasks/", &googleapi.Error{Code: 400, Body: body})

	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, body, err.Body)
	assert.Equal(t, map[string][]string{"title": {"This field is required."}}, err.Fields())
	assert.Contains(t, err.Error(), "POST /tasks/tasks/")
}

func TestFields_DetailString(t *testing.T) {
	err := &Error{Kind: KindValidation, Body: `{"detail":"Not found."}`}
	assert.Equal(t, map[string][]string{"detail": {"Not found."}}, err.Fields())

	err = &Error{Kind: KindValidation, Body: `<html>oops</html>`}
	assert.Nil(t, err.Fields())
}

func TestSessionExpired_DoesNotDoubleWrap(t *testing.T) {
	first := SessionExpired("refresh", errors.New("boom"))
	second := SessionExpired("GET /tasks/", first)

	assert.Same(t, first, second)
	assert.True(t, IsUnauthorized(&Error{Kind: KindUnauthorized}))
	assert.False(t, IsUnauthorized(first))
}
