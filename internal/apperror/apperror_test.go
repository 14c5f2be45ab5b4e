package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{fmt.Errorf("category %q: %w", "x", ErrNotFound), codes.NotFound},
		{fmt.Errorf("bad rate: %w", ErrInvalidInput), codes.InvalidArgument},
		{ErrConflict, codes.FailedPrecondition},
		{ErrForbidden, codes.PermissionDenied},
		{ErrUnauthenticated, codes.Unauthenticated},
		{status.Error(codes.AlreadyExists, "dup"), codes.AlreadyExists},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err), "%v", tt.err)
	}
}

func TestStatus_HidesInternalDetails(t *testing.T) {
	s, ok := status.FromError(Status(errors.New("pq: connection refused")))
	assert.True(t, ok)
	assert.Equal(t, codes.Internal, s.Code())
	assert.Equal(t, "internal error", s.Message())
}

func TestStatus_KeepsDomainMessage(t *testing.T) {
	s, _ := status.FromError(Status(fmt.Errorf("invoice is exported: %w", ErrConflict)))
	assert.Equal(t, codes.FailedPrecondition, s.Code())
	assert.Equal(t, "invoice is exported: conflict", s.Message())
}
