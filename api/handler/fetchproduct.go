package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prodex/models"
)

// Fetcher runs the extraction pipeline for one URL. The bool reports a
// cache hit.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, identifier string) (*models.NormalizedProduct, bool, error)
}

// FetchProduct returns the handler for POST /api/fetch-product.
//
// Flow:
//  1. Parse and validate the request body.
//  2. Run the pipeline (cache, rate limit, strategy chain, normalize).
//  3. Map pipeline failures to stable HTTP statuses.
func FetchProduct(f Fetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FetchProductRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "Missing url in request body",
			})
			return
		}

		identifier := req.UserID
		if identifier == "" {
			identifier = c.ClientIP()
		}

		product, cached, err := f.Fetch(c.Request.Context(), req.URL, identifier)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.FetchProductResponse{
			OK:     true,
			Data:   product,
			Cached: cached,
		})
	}
}

// respondError maps an ExtractError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var ee *models.ExtractError
	if !errors.As(err, &ee) {
		ee = models.NewExtractError(models.ErrCodeInternal, models.TagUnknown, err.Error(), err)
	}

	switch ee.Code {
	case models.ErrCodeInvalidURL:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid URL format",
		})
	case models.ErrCodeRateLimited:
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:      "Rate limit exceeded",
			RetryAfter: ee.RetryAfter,
			Message:    fmt.Sprintf("Please wait %d seconds before retrying this domain", ee.RetryAfter),
		})
	case models.ErrCodeBlocked:
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error: "Site blocking automated access. Try again later or visit the site directly.",
		})
	case models.ErrCodeTimeout:
		c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{
			Error:  "Extraction timed out",
			Detail: ee.Message,
		})
	case models.ErrCodeExhausted, models.ErrCodeNetwork:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:  "All extraction strategies failed",
			Detail: detail(ee),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:  "Internal server error",
			Detail: ee.Message,
		})
	}
}

// detail renders the underlying cause plus the coarse classification tag
// for client-side logging.
func detail(ee *models.ExtractError) string {
	if ee.Err != nil {
		return fmt.Sprintf("%s (%s)", ee.Err.Error(), ee.Tag)
	}
	return ee.Tag
}
