package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bahodirov07uz/shop/internal/domain/auth"
	"github.com/bahodirov07uz/shop/internal/domain/order"
	"github.com/bahodirov07uz/shop/internal/domain/product"
)

// badRequestError marks malformed client input.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &badRequestError{msg: msg, err: err}
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var (
		bad *badRequestError
		iq  *order.InvalidQuantityError
		pnf *order.ProductNotFoundError
	)
	switch {
	case errors.As(err, &bad),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.As(err, &iq), errors.As(err, &pnf):
		return http.StatusUnprocessableEntity
	case errors.Is(err, product.ErrNotFound), errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err. Server errors are logged and their
// details hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusConflict:
		msg = "order status cannot be changed"
	case http.StatusUnauthorized, http.StatusForbidden:
		msg = http.StatusText(code)
	}
	writeError(w, code, msg)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(code) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

func writeJSON(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
