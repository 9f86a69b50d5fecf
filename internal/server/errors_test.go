package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	obligationdomain "github.com/vidyalaya/feeledger/internal/obligation/domain"
	paymentdomain "github.com/vidyalaya/feeledger/internal/payment/domain"
)

func doRequestWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, err)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid amount", paymentdomain.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid method", paymentdomain.ErrInvalidMethod, http.StatusBadRequest},
		{"payment not found", paymentdomain.ErrNotFound, http.StatusNotFound},
		{"fee record not found", paymentdomain.ErrFeeRecordNotFound, http.StatusNotFound},
		{"nothing outstanding", paymentdomain.ErrNothingOutstanding, http.StatusConflict},
		{"already reversed", paymentdomain.ErrAlreadyReversed, http.StatusConflict},
		{"exceeds original", paymentdomain.ErrAmountExceedsOriginal, http.StatusConflict},
		{"reversal not allowed", paymentdomain.ErrReversalNotAllowed, http.StatusConflict},
		{"concurrency conflict", paymentdomain.ErrConcurrencyConflict, http.StatusServiceUnavailable},
		{"already enabled", obligationdomain.ErrAlreadyEnabled, http.StatusConflict},
		{"no fee structure", obligationdomain.ErrNoFeeStructure, http.StatusNotFound},
		{"validation payload", invalidRequestError(), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequestWithError(t, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestHealthRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
