package grpcserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/luxfi/thetacrypt/pkg/errs"
)

func TestToStatusMapsErrorKindsToGRPCCodes(t *testing.T) {
	cases := []struct {
		kind errs.Kind
		want codes.Code
	}{
		{errs.InvalidParams, codes.InvalidArgument},
		{errs.WrongScheme, codes.InvalidArgument},
		{errs.DeserializationFailed, codes.InvalidArgument},
		{errs.AlreadyExists, codes.AlreadyExists},
		{errs.KeyNotFound, codes.NotFound},
		{errs.IDNotFound, codes.NotFound},
		{errs.InternalError, codes.Internal},
	}
	for _, c := range cases {
		err := errs.New(c.kind, "boom")
		got := toStatus(err)
		assert.Equal(t, c.want, status.Code(got), "kind %v", c.kind)
	}
}

func TestToStatusDefaultsUnknownErrorsToInternal(t *testing.T) {
	got := toStatus(assertAsPlainError{})
	assert.Equal(t, codes.Internal, status.Code(got))
}

type assertAsPlainError struct{}

func (assertAsPlainError) Error() string { return "plain error with no Kind" }
