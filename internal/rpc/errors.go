package rpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Varun5711/shortbox/internal/service"
	"github.com/Varun5711/shortbox/internal/storage"
	"github.com/Varun5711/shortbox/internal/validation"
)

// toStatus maps service errors onto gRPC codes. Validation failures carry
// the offending field as a BadRequest detail.
func toStatus(err error) error {
	var vErr *validation.Error
	switch {
	case errors.As(err, &vErr):
		st := status.New(codes.InvalidArgument, vErr.Error())
		detailed, detailErr := st.WithDetails(&errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{
				{Field: vErr.Field, Description: vErr.Reason},
			},
		})
		if detailErr != nil {
			return st.Err()
		}
		return detailed.Err()
	case errors.Is(err, service.ErrDuplicateCustomCode):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrAllocationExhausted):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatus turns a gRPC error back into the matching service error so
// callers can keep using errors.Is.
func fromStatus(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &service.StoreError{Op: "call " + method, Err: err}
	}

	switch st.Code() {
	case codes.InvalidArgument:
		vErr := &validation.Error{Reason: st.Message()}
		for _, detail := range st.Details() {
			if br, ok := detail.(*errdetails.BadRequest); ok && len(br.GetFieldViolations()) > 0 {
				vErr.Field = br.GetFieldViolations()[0].GetField()
				vErr.Reason = br.GetFieldViolations()[0].GetDescription()
			}
		}
		return vErr
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", st.Message(), service.ErrDuplicateCustomCode)
	case codes.Aborted:
		return fmt.Errorf("%s: %w", st.Message(), service.ErrAllocationExhausted)
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return &service.StoreError{Op: "call " + method, Err: errors.New(st.Message())}
	}
}
