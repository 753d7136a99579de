package ledgerrpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server serves a ledger.Ledger as the paynet.ledger.v1.Ledger service
type Server struct {
	ledger ledger.Ledger
}

// NewServer wraps l
func NewServer(l ledger.Ledger) *Server {
	return &Server{ledger: l}
}

// Register attaches the service to a gRPC server
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	gs.RegisterService(&serviceDesc, s)
}

func (s *Server) call(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	switch method {
	case MethodRegisterUser:
		err := s.ledger.RegisterUser(ctx, intField(req, fieldID), req.GetFields()[fieldDisplayName].GetStringValue())
		return empty(err)

	case MethodAddBalance:
		err := s.ledger.AddBalance(ctx, intField(req, fieldID), numberField(req, fieldAmount))
		return empty(err)

	case MethodCreateChannel:
		err := s.ledger.CreateChannel(ctx,
			intField(req, fieldU), intField(req, fieldV),
			numberField(req, fieldCapacityU), numberField(req, fieldCapacityV))
		return empty(err)

	case MethodChannelBalances:
		cb, err := s.ledger.ChannelBalances(ctx, intField(req, fieldU), intField(req, fieldV))
		if err != nil {
			return nil, toStatus(err)
		}
		tokens := make([]any, len(cb.Tokens))
		for i, t := range cb.Tokens {
			tokens[i] = t
		}
		balances := make([]any, len(cb.Balances))
		for i, b := range cb.Balances {
			balances[i] = b
		}
		return newStruct(map[string]any{fieldTokens: tokens, fieldBalances: balances})

	case MethodFindPath:
		path, err := s.ledger.FindPath(ctx, intField(req, fieldSender), intField(req, fieldReceiver), numberField(req, fieldAmount))
		if err != nil {
			return nil, toStatus(err)
		}
		hops := make([]any, len(path))
		for i, p := range path {
			hops[i] = p
		}
		return newStruct(map[string]any{fieldPath: hops})

	case MethodTransfer:
		err := s.ledger.Transfer(ctx, intField(req, fieldSender), intField(req, fieldReceiver), numberField(req, fieldAmount))
		return empty(err)

	case MethodTotalUsers:
		total, err := s.ledger.TotalUsers(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		return newStruct(map[string]any{fieldTotal: total})
	}

	return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func empty(err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func numberField(s *structpb.Struct, name string) float64 {
	return s.GetFields()[name].GetNumberValue()
}

func intField(s *structpb.Struct, name string) int {
	return int(numberField(s, name))
}

// UnaryInterceptor logs every ledger call and records it in reg, which may be nil.
func UnaryInterceptor(log *slog.Logger, reg *metrics.Registry) grpc.UnaryServerInterceptor {
	log = logger.OrDefault(log)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		code := status.Code(err)
		outcome := metrics.StatusSuccess
		if err != nil {
			outcome = metrics.StatusFailure
		}
		reg.RecordLedgerCall(operationOf(info.FullMethod), outcome, elapsed)

		log.Debug("Ledger call served",
			"method", info.FullMethod,
			"code", code.String(),
			"duration", elapsed)
		return resp, err
	}
}
