package response

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func runRequestID(t *testing.T, inbound string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	if inbound != "" {
		c.Request.Header.Set(HeaderRequestID, inbound)
	}

	RequestIDMiddleware()(c)

	got, ok := c.Get(ContextKeyRequestID)
	require.True(t, ok)
	return w, got.(string)
}

func TestRequestIDHonorsWellFormedHeader(t *testing.T) {
	id := uuid.New().String()
	w, ctxID := runRequestID(t, id)

	require.Equal(t, id, ctxID)
	require.Equal(t, id, w.Header().Get(HeaderRequestID))
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	w, ctxID := runRequestID(t, "definitely-not-a-uuid")

	require.NotEqual(t, "definitely-not-a-uuid", ctxID)
	_, err := uuid.Parse(ctxID)
	require.NoError(t, err)
	require.Equal(t, ctxID, w.Header().Get(HeaderRequestID))
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	w, ctxID := runRequestID(t, "")

	_, err := uuid.Parse(ctxID)
	require.NoError(t, err)
	require.Equal(t, ctxID, w.Header().Get(HeaderRequestID))
}
