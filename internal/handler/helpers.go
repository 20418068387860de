package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rjnat/cursorpos/internal/apierror"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewFields(fields))
		return false
	}
	return true
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Backend
// rejections keep their original status; connectivity failures surface as 502
// so the UI can tell "backend said no" apart from "could not reach backend".
func writeServiceError(c *gin.Context, err error) {
	var vErr *apierror.ValidationError
	if errors.As(err, &vErr) {
		status := vErr.Status
		if status == 0 {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, apierror.New(vErr.Message))
		return
	}
	if apierror.IsNetwork(err) {
		c.JSON(http.StatusBadGateway, apierror.New("backend unreachable"))
		return
	}
	switch {
	case errors.Is(err, apierror.ErrStockLimit):
		c.JSON(http.StatusConflict, apierror.New("insufficient stock for requested quantity"))
	case errors.Is(err, apierror.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, apierror.New("order not found"))
	case errors.Is(err, apierror.ErrDuplicateOrder):
		c.JSON(http.StatusConflict, apierror.New("duplicate order"))
	case errors.Is(err, apierror.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, apierror.New("local store unavailable"))
	default:
		c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
	}
}
