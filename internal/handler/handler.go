// Package handler holds helpers shared by the HTTP handlers in its
// subpackages.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/httputil"
)

// Bind decodes the request into obj. On failure it records a bind error for
// the validation middleware and returns false.
func Bind(c *gin.Context, obj interface{}, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return false
	}
	return true
}

// ParseID parses a uuid that already passed the uuid binding tag.
func ParseID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid id", err))
		return uuid.Nil, false
	}
	return id, true
}

// FormFile opens an optional multipart file. It returns nil when the field
// is absent.
func FormFile(c *gin.Context, field string) (io.ReadCloser, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperrors.BadRequest("invalid upload", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return f, nil
}
