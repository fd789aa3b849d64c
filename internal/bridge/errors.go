package bridge

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/heartmarshall/qrfactory/internal/domain"
	"github.com/heartmarshall/qrfactory/internal/proxy"
)

// toStatus converts shell and backend errors to gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var statusErr *proxy.StatusError
	switch {
	case errors.As(err, &statusErr):
		return status.Error(codeForHTTP(statusErr.Status), statusErr.Error())
	case errors.Is(err, domain.ErrBackendUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, proxy.ErrForbiddenPath),
		errors.Is(err, proxy.ErrMethodNotAllowed),
		errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func codeForHTTP(code int) codes.Code {
	switch code {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	default:
		return codes.Unknown
	}
}

func invalidArgument(field, message string) error {
	return status.Error(codes.InvalidArgument, field+": "+message)
}
