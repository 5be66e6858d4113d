package sipproxy

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Failures come back from the proxy as gRPC statuses and are returned unchanged.
// These helpers classify them without callers importing grpc.

func IsInvalidArgument(err error) bool { return status.Code(err) == codes.InvalidArgument }

func IsNotFound(err error) bool { return status.Code(err) == codes.NotFound }

// IsFailedPrecondition reports a delete blocked by Agents that still reference the Provider.
func IsFailedPrecondition(err error) bool { return status.Code(err) == codes.FailedPrecondition }

func IsUnavailable(err error) bool { return status.Code(err) == codes.Unavailable }

func invalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}
