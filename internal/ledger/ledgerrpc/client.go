package ledgerrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ ledger.Ledger = (*Client)(nil)

// Client is a ledger.Ledger backed by a remote paynet.ledger.v1.Ledger service.
// Errors carry the same sentinels the server-side ledger returned.
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
}

// NewClient wraps an existing connection. A positive timeout bounds every call.
func NewClient(conn grpc.ClientConnInterface, timeout time.Duration) *Client {
	return &Client{conn: conn, timeout: timeout}
}

// Dial opens a plaintext connection to target and wraps it in a Client
func Dial(target string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger at %s: %w", target, err)
	}
	c := NewClient(conn, timeout)
	c.closer = conn.Close
	return c, nil
}

// Close releases the connection if the client opened it
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) invoke(ctx context.Context, op, method string, fields map[string]any, operands ...any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, ledger.NewCallError(op, fmt.Errorf("encode request: %w", err), operands...)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, ledger.NewCallError(op, fromStatus(err), operands...)
	}
	return out, nil
}

func (c *Client) RegisterUser(ctx context.Context, id int, displayName string) error {
	_, err := c.invoke(ctx, ledger.OpRegisterUser, MethodRegisterUser, map[string]any{
		fieldID:          id,
		fieldDisplayName: displayName,
	}, id)
	return err
}

func (c *Client) AddBalance(ctx context.Context, id int, amount float64) error {
	_, err := c.invoke(ctx, ledger.OpAddBalance, MethodAddBalance, map[string]any{
		fieldID:     id,
		fieldAmount: amount,
	}, id, amount)
	return err
}

func (c *Client) CreateChannel(ctx context.Context, u, v int, capacityU, capacityV float64) error {
	_, err := c.invoke(ctx, ledger.OpCreateChannel, MethodCreateChannel, map[string]any{
		fieldU:         u,
		fieldV:         v,
		fieldCapacityU: capacityU,
		fieldCapacityV: capacityV,
	}, u, v, capacityU, capacityV)
	return err
}

func (c *Client) ChannelBalances(ctx context.Context, u, v int) (ledger.ChannelBalances, error) {
	out, err := c.invoke(ctx, ledger.OpChannelBalances, MethodChannelBalances, map[string]any{
		fieldU: u,
		fieldV: v,
	}, u, v)
	if err != nil {
		return ledger.ChannelBalances{}, err
	}

	var cb ledger.ChannelBalances
	for _, t := range out.GetFields()[fieldTokens].GetListValue().GetValues() {
		cb.Tokens = append(cb.Tokens, t.GetStringValue())
	}
	for _, b := range out.GetFields()[fieldBalances].GetListValue().GetValues() {
		cb.Balances = append(cb.Balances, b.GetNumberValue())
	}
	return cb, nil
}

func (c *Client) FindPath(ctx context.Context, sender, receiver int, amount float64) ([]int, error) {
	out, err := c.invoke(ctx, ledger.OpFindPath, MethodFindPath, map[string]any{
		fieldSender:   sender,
		fieldReceiver: receiver,
		fieldAmount:   amount,
	}, sender, receiver, amount)
	if err != nil {
		return nil, err
	}

	hops := out.GetFields()[fieldPath].GetListValue().GetValues()
	path := make([]int, len(hops))
	for i, h := range hops {
		path[i] = int(h.GetNumberValue())
	}
	return path, nil
}

func (c *Client) Transfer(ctx context.Context, sender, receiver int, amount float64) error {
	_, err := c.invoke(ctx, ledger.OpTransfer, MethodTransfer, map[string]any{
		fieldSender:   sender,
		fieldReceiver: receiver,
		fieldAmount:   amount,
	}, sender, receiver, amount)
	return err
}

func (c *Client) TotalUsers(ctx context.Context) (int, error) {
	out, err := c.invoke(ctx, ledger.OpTotalUsers, MethodTotalUsers, map[string]any{})
	if err != nil {
		return 0, err
	}
	return int(out.GetFields()[fieldTotal].GetNumberValue()), nil
}
