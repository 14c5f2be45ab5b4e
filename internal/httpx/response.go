package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
)

type errorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes err as {"error": "..."} with the HTTP status matching its
// gRPC code.
func WriteError(w http.ResponseWriter, err error) {
	s, _ := status.FromError(apperror.Status(err))
	JSON(w, HTTPStatusFromCode(s.Code()), errorBody{Error: s.Message()})
}

// MaxBodyBytes caps a JSON request body.
const MaxBodyBytes = 1 << 20

// Decode reads a JSON request body of at most MaxBodyBytes into dst.
func Decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return status.Error(codes.InvalidArgument, "request body too large")
		}
		return status.Error(codes.InvalidArgument, "invalid request body")
	}
	return nil
}

// PathID returns the route variable name when it is a UUID. Anything else
// cannot name a stored row and reads as not found.
func PathID(r *http.Request, name string) (string, error) {
	v := mux.Vars(r)[name]
	if _, err := uuid.Parse(v); err != nil {
		return "", fmt.Errorf("%s %q: %w", name, v, apperror.ErrNotFound)
	}
	return v, nil
}

// RefID checks an optional id taken from a body or query string. Empty is
// allowed; anything else must be a UUID.
func RefID(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := uuid.Parse(v); err != nil {
		return fmt.Errorf("%s %q is not an id: %w", field, v, apperror.ErrInvalidInput)
	}
	return nil
}

// HTTPStatusFromCode follows the mapping used by grpc-gateway.
func HTTPStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted, codes.FailedPrecondition:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
