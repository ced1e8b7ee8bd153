package handler

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-sync-api/internal/middleware"
	appErrors "github.com/noah-isme/classroom-sync-api/pkg/errors"
	"github.com/noah-isme/classroom-sync-api/pkg/response"
)

func ownerFromContext(c *gin.Context) string {
	return middleware.OwnerFrom(c)
}

// bindJSON decodes the request body and writes a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// failWith renders err, attaching whatever the operation produced before a
// partial failure.
func failWith(c *gin.Context, err error, partial interface{}) {
	if v := reflect.ValueOf(partial); partial == nil || (v.Kind() == reflect.Ptr && v.IsNil()) {
		response.Error(c, err)
		return
	}
	response.ErrorWithData(c, err, partial)
}
