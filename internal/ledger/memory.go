package ledger

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var _ Ledger = (*Memory)(nil)

var tokenNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("paynet-sim/channel-token"))

type account struct {
	name    string
	balance float64
}

type channel struct {
	ends     [2]int // ascending
	balances [2]float64
	tokens   [2]string
}

func (c *channel) side(node int) int {
	if c.ends[0] == node {
		return 0
	}
	return 1
}

// Memory is an in-process ledger. Each user holds a free balance; opening a
// channel moves funds from both users into the channel's two sides, and a
// transfer shifts the amount across every hop of a breadth-first route whose
// sending sides can all cover it. All operations are serialised by one lock, so
// a multi-hop transfer is atomic.
type Memory struct {
	mu        sync.RWMutex
	users     map[int]*account
	channels  map[[2]int]*channel
	neighbors map[int][]int // ascending
	transfers int
}

// MemoryStats is a point-in-time view of a Memory ledger
type MemoryStats struct {
	Users     int     `json:"users"`
	Channels  int     `json:"channels"`
	Transfers int     `json:"transfers"`
	Locked    float64 `json:"locked"`
}

// NewMemory creates an empty ledger
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[int]*account),
		channels:  make(map[[2]int]*channel),
		neighbors: make(map[int][]int),
	}
}

func channelKey(u, v int) [2]int {
	if u < v {
		return [2]int{u, v}
	}
	return [2]int{v, u}
}

func validAmount(amount float64) bool {
	return amount >= 0 && !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

func (l *Memory) RegisterUser(ctx context.Context, id int, displayName string) error {
	if err := ctx.Err(); err != nil {
		return NewCallError(OpRegisterUser, err, id)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if id < 0 {
		return NewCallError(OpRegisterUser, fmt.Errorf("%w: negative id", ErrUnknownUser), id)
	}
	if _, ok := l.users[id]; ok {
		return NewCallError(OpRegisterUser, ErrUserExists, id)
	}
	l.users[id] = &account{name: displayName}
	return nil
}

func (l *Memory) AddBalance(ctx context.Context, id int, amount float64) error {
	if err := ctx.Err(); err != nil {
		return NewCallError(OpAddBalance, err, id, amount)
	}
	if !validAmount(amount) {
		return NewCallError(OpAddBalance, ErrInvalidAmount, id, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.users[id]
	if !ok {
		return NewCallError(OpAddBalance, ErrUnknownUser, id, amount)
	}
	acc.balance += amount
	return nil
}

func (l *Memory) CreateChannel(ctx context.Context, u, v int, capacityU, capacityV float64) error {
	operands := []any{u, v, capacityU, capacityV}
	if err := ctx.Err(); err != nil {
		return NewCallError(OpCreateChannel, err, operands...)
	}
	if u == v {
		return NewCallError(OpCreateChannel, ErrSameEndpoints, operands...)
	}
	if !validAmount(capacityU) || !validAmount(capacityV) {
		return NewCallError(OpCreateChannel, ErrInvalidAmount, operands...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	accU, okU := l.users[u]
	accV, okV := l.users[v]
	if !okU || !okV {
		return NewCallError(OpCreateChannel, ErrUnknownUser, operands...)
	}
	key := channelKey(u, v)
	if _, exists := l.channels[key]; exists {
		return NewCallError(OpCreateChannel, ErrChannelExists, operands...)
	}
	if accU.balance < capacityU {
		return NewCallError(OpCreateChannel, fmt.Errorf("%w: user %d holds %g", ErrInsufficientBalance, u, accU.balance), operands...)
	}
	if accV.balance < capacityV {
		return NewCallError(OpCreateChannel, fmt.Errorf("%w: user %d holds %g", ErrInsufficientBalance, v, accV.balance), operands...)
	}

	accU.balance -= capacityU
	accV.balance -= capacityV

	ch := &channel{ends: key}
	ch.balances[ch.side(u)] = capacityU
	ch.balances[ch.side(v)] = capacityV
	for s, node := range key {
		ch.tokens[s] = uuid.NewSHA1(tokenNamespace, []byte(fmt.Sprintf("%d:%d:%d", key[0], key[1], node))).String()
	}
	l.channels[key] = ch
	l.link(u, v)
	l.link(v, u)
	return nil
}

func (l *Memory) link(from, to int) {
	list := l.neighbors[from]
	pos, _ := slices.BinarySearch(list, to)
	l.neighbors[from] = slices.Insert(list, pos, to)
}

func (l *Memory) ChannelBalances(ctx context.Context, u, v int) (ChannelBalances, error) {
	if err := ctx.Err(); err != nil {
		return ChannelBalances{}, NewCallError(OpChannelBalances, err, u, v)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	ch, ok := l.channels[channelKey(u, v)]
	if !ok {
		return ChannelBalances{}, NewCallError(OpChannelBalances, ErrUnknownChannel, u, v)
	}
	su, sv := ch.side(u), ch.side(v)
	return ChannelBalances{
		Tokens:   []string{ch.tokens[su], ch.tokens[sv]},
		Balances: []float64{ch.balances[su], ch.balances[sv]},
	}, nil
}

func (l *Memory) FindPath(ctx context.Context, sender, receiver int, amount float64) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewCallError(OpFindPath, err, sender, receiver, amount)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	path, err := l.route(sender, receiver, amount)
	if err != nil {
		return nil, NewCallError(OpFindPath, err, sender, receiver, amount)
	}
	return path, nil
}

// route runs a breadth-first search over channels whose sending side can cover
// amount. Neighbours are visited in ascending order, so the result is the
// lexicographically first among the shortest routes. Callers hold l.mu.
func (l *Memory) route(sender, receiver int, amount float64) ([]int, error) {
	if !(amount > 0) || !validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if _, ok := l.users[sender]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUser, sender)
	}
	if _, ok := l.users[receiver]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUser, receiver)
	}
	if sender == receiver {
		return nil, fmt.Errorf("%w: sender and receiver are both %d", ErrSameEndpoints, sender)
	}

	parent := map[int]int{sender: sender}
	queue := []int{sender}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range l.neighbors[cur] {
			if _, seen := parent[next]; seen {
				continue
			}
			ch := l.channels[channelKey(cur, next)]
			if ch.balances[ch.side(cur)] < amount {
				continue
			}
			parent[next] = cur
			if next == receiver {
				return buildPath(parent, sender, receiver), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, ErrNoPath
}

func buildPath(parent map[int]int, sender, receiver int) []int {
	path := []int{receiver}
	for node := receiver; node != sender; {
		node = parent[node]
		path = append(path, node)
	}
	slices.Reverse(path)
	return path
}

func (l *Memory) Transfer(ctx context.Context, sender, receiver int, amount float64) error {
	if err := ctx.Err(); err != nil {
		return NewCallError(OpTransfer, err, sender, receiver, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	path, err := l.route(sender, receiver, amount)
	if err != nil {
		return NewCallError(OpTransfer, err, sender, receiver, amount)
	}
	for i := 0; i+1 < len(path); i++ {
		ch := l.channels[channelKey(path[i], path[i+1])]
		ch.balances[ch.side(path[i])] -= amount
		ch.balances[ch.side(path[i+1])] += amount
	}
	l.transfers++
	return nil
}

func (l *Memory) TotalUsers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, NewCallError(OpTotalUsers, err)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.users), nil
}

// Balance returns the free balance of a user
func (l *Memory) Balance(id int) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.users[id]
	if !ok {
		return 0, false
	}
	return acc.balance, true
}

// Stats returns counters describing the ledger
func (l *Memory) Stats() MemoryStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	locked := 0.0
	for _, ch := range l.channels {
		locked += ch.balances[0] + ch.balances[1]
	}
	return MemoryStats{
		Users:     len(l.users),
		Channels:  len(l.channels),
		Transfers: l.transfers,
		Locked:    locked,
	}
}
