// Package ledgerrpc exposes a ledger.Ledger over gRPC and provides a client
// that satisfies ledger.Ledger against a remote server. Messages are
// google.protobuf.Struct values so no generated stubs are needed.
package ledgerrpc

import (
	"context"
	"errors"
	"strings"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "paynet.ledger.v1.Ledger"

// errorDomain identifies ledger failures in google.rpc.ErrorInfo details
const errorDomain = "ledger.paynet"

// Method names
const (
	MethodRegisterUser    = "RegisterUser"
	MethodAddBalance      = "AddBalance"
	MethodCreateChannel   = "CreateChannel"
	MethodChannelBalances = "ChannelBalances"
	MethodFindPath        = "FindPath"
	MethodTransfer        = "Transfer"
	MethodTotalUsers      = "TotalUsers"
)

// Request and response field names
const (
	fieldID          = "id"
	fieldDisplayName = "display_name"
	fieldAmount      = "amount"
	fieldU           = "u"
	fieldV           = "v"
	fieldCapacityU   = "capacity_u"
	fieldCapacityV   = "capacity_v"
	fieldSender      = "sender"
	fieldReceiver    = "receiver"
	fieldTokens      = "tokens"
	fieldBalances    = "balances"
	fieldPath        = "path"
	fieldTotal       = "total"
)

// FullMethod returns the gRPC path of a method
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// operations maps each method to the ledger operation it performs
var operations = map[string]string{
	MethodRegisterUser:    ledger.OpRegisterUser,
	MethodAddBalance:      ledger.OpAddBalance,
	MethodCreateChannel:   ledger.OpCreateChannel,
	MethodChannelBalances: ledger.OpChannelBalances,
	MethodFindPath:        ledger.OpFindPath,
	MethodTransfer:        ledger.OpTransfer,
	MethodTotalUsers:      ledger.OpTotalUsers,
}

// operationOf returns the ledger operation behind a full gRPC method path
func operationOf(fullMethod string) string {
	method := strings.TrimPrefix(fullMethod, "/"+ServiceName+"/")
	if op, ok := operations[method]; ok {
		return op
	}
	return fullMethod
}

// handler is the dispatch target registered with the service descriptor
type handler interface {
	call(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodRegisterUser, Handler: unaryHandler(MethodRegisterUser)},
		{MethodName: MethodAddBalance, Handler: unaryHandler(MethodAddBalance)},
		{MethodName: MethodCreateChannel, Handler: unaryHandler(MethodCreateChannel)},
		{MethodName: MethodChannelBalances, Handler: unaryHandler(MethodChannelBalances)},
		{MethodName: MethodFindPath, Handler: unaryHandler(MethodFindPath)},
		{MethodName: MethodTransfer, Handler: unaryHandler(MethodTransfer)},
		{MethodName: MethodTotalUsers, Handler: unaryHandler(MethodTotalUsers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "paynet/ledger/v1/ledger.proto",
}

func unaryHandler(method string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(handler)
		if interceptor == nil {
			return h.call(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return h.call(ctx, method, req.(*structpb.Struct))
		})
	}
}

// reasons maps ledger sentinels to ErrorInfo reasons and gRPC codes
var reasons = []struct {
	err    error
	reason string
	code   codes.Code
}{
	{ledger.ErrUserExists, "USER_EXISTS", codes.AlreadyExists},
	{ledger.ErrChannelExists, "CHANNEL_EXISTS", codes.AlreadyExists},
	{ledger.ErrUnknownUser, "UNKNOWN_USER", codes.NotFound},
	{ledger.ErrUnknownChannel, "UNKNOWN_CHANNEL", codes.NotFound},
	{ledger.ErrInsufficientBalance, "INSUFFICIENT_BALANCE", codes.FailedPrecondition},
	{ledger.ErrNoPath, "NO_PATH", codes.FailedPrecondition},
	{ledger.ErrInvalidAmount, "INVALID_AMOUNT", codes.InvalidArgument},
	{ledger.ErrSameEndpoints, "SAME_ENDPOINTS", codes.InvalidArgument},
	{ledger.ErrUnavailable, "UNAVAILABLE", codes.Unavailable},
}

// toStatus converts a ledger error into a gRPC status error carrying an
// ErrorInfo detail that names the sentinel.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	var ce *ledger.CallError
	if errors.As(err, &ce) {
		msg = ce.Err.Error()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msg)
	}

	for _, r := range reasons {
		if !errors.Is(err, r.err) {
			continue
		}
		st, derr := status.New(r.code, msg).WithDetails(&errdetails.ErrorInfo{
			Reason: r.reason,
			Domain: errorDomain,
		})
		if derr != nil {
			return status.Error(r.code, msg)
		}
		return st.Err()
	}
	return status.Error(codes.Internal, msg)
}

// fromStatus converts a gRPC error back into a ledger sentinel.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, r := range reasons {
			if r.reason == info.GetReason() {
				return &remoteError{msg: st.Message(), err: r.err}
			}
		}
	}

	switch st.Code() {
	case codes.Canceled:
		return &remoteError{msg: st.Message(), err: context.Canceled}
	case codes.DeadlineExceeded:
		return &remoteError{msg: st.Message(), err: context.DeadlineExceeded}
	case codes.Unavailable:
		return &remoteError{msg: st.Message(), err: ledger.ErrUnavailable}
	}
	return errors.New(st.Message())
}

// remoteError keeps the server's message while unwrapping to the sentinel
type remoteError struct {
	msg string
	err error
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.err }
