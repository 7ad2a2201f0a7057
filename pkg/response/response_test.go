package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestPaginated(t *testing.T) {
	c, w := newContext()
	Paginated(c, []string{"a"}, 2, 10, 11)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":["a"],"pagination":{"page":2,"page_size":10,"total_count":11}}`, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorHidesCause(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Wrap(errors.New("dial tcp: connection refused"), appErrors.ErrDependencyFailure.Code, http.StatusServiceUnavailable, "database unavailable"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":{"code":"DEPENDENCY_FAILURE","message":"database unavailable","status":503}}`, w.Body.String())
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Errors.String(), "connection refused")
}

func TestErrorClientFailureNotRecorded(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrForbidden, "comments are disabled for this notice"))

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, c.Errors)
}
