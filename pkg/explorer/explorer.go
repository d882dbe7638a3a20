// Package explorer maps the explorer's module/action endpoints onto typed calls.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/Sternrassler/rise-explorer-client/pkg/pagination"
)

// MaxMultiBalanceAddresses is the explorer's limit for balancemulti.
const MaxMultiBalanceAddresses = 20

// Argument errors returned before any request is made.
var (
	ErrTooManyAddresses = fmt.Errorf("at most %d addresses per balancemulti call", MaxMultiBalanceAddresses)
	ErrNoAddresses      = errors.New("at least one address is required")
	ErrAddressOrTxHash  = errors.New("either address or txhash must be provided")
	ErrInvalidClosest   = errors.New("closest must be 'before' or 'after'")
	ErrInvalidSort      = errors.New("sort must be 'asc' or 'desc'")
)

// Sort orders accepted by list endpoints.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Closest values for BlockNumberByTime.
const (
	ClosestBefore = "before"
	ClosestAfter  = "after"
)

// Executor runs a single explorer call.
type Executor interface {
	Execute(ctx context.Context, params client.Params, method string) (*client.Envelope, error)
}

// ListOptions narrows list endpoints. Zero values are omitted from the request.
type ListOptions struct {
	StartBlock *int64
	EndBlock   *int64
	Page       int
	Offset     int
	Sort       string
}

func (o ListOptions) apply(p client.Params, defaultSort string) error {
	sort := o.Sort
	if sort == "" {
		sort = defaultSort
	}
	if sort != SortAsc && sort != SortDesc {
		return ErrInvalidSort
	}
	p["sort"] = sort
	if o.StartBlock != nil {
		p["startblock"] = strconv.FormatInt(*o.StartBlock, 10)
	}
	if o.EndBlock != nil {
		p["endblock"] = strconv.FormatInt(*o.EndBlock, 10)
	}
	if o.Page > 0 {
		p["page"] = strconv.Itoa(o.Page)
	}
	if o.Offset > 0 {
		p["offset"] = strconv.Itoa(o.Offset)
	}
	return nil
}

// Block returns a pointer to n, for ListOptions block bounds.
func Block(n int64) *int64 {
	return &n
}

// API is the typed explorer surface.
type API struct {
	exec   Executor
	acc    *pagination.Accumulator
	method string
}

// New creates an API over exec. A nil accumulator gets the default configuration.
func New(exec Executor, acc *pagination.Accumulator) *API {
	if acc == nil {
		acc = pagination.NewAccumulator(exec, pagination.DefaultConfig())
	}
	return &API{
		exec:   exec,
		acc:    acc,
		method: http.MethodGet,
	}
}

// Accumulator returns the accumulator used for paged helpers.
func (a *API) Accumulator() *pagination.Accumulator {
	return a.acc
}

func (a *API) call(ctx context.Context, module, action string, fields client.Params) (*client.Envelope, error) {
	params := fields.Clone()
	params["module"] = module
	params["action"] = action
	return a.exec.Execute(ctx, params, a.method)
}

func pageDefaults(o ListOptions) ListOptions {
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.Offset <= 0 {
		o.Offset = 10
	}
	return o
}

// Balance returns the native balance of addr in wei.
func (a *API) Balance(ctx context.Context, addr string) (*client.Envelope, error) {
	return a.call(ctx, "account", "balance", client.Params{"address": addr})
}

// BalanceMulti returns the balances of up to 20 addresses.
func (a *API) BalanceMulti(ctx context.Context, addrs []string) (*client.Envelope, error) {
	if len(addrs) == 0 {
		return nil, ErrNoAddresses
	}
	if len(addrs) > MaxMultiBalanceAddresses {
		return nil, ErrTooManyAddresses
	}
	return a.call(ctx, "account", "balancemulti", client.Params{"address": strings.Join(addrs, ",")})
}

// Transactions returns one page of normal transactions. Defaults: page 1,
// offset 10, sort desc.
func (a *API) Transactions(ctx context.Context, addr string, opts ListOptions) (*client.Envelope, error) {
	p := client.Params{"address": addr}
	if err := pageDefaults(opts).apply(p, SortDesc); err != nil {
		return nil, err
	}
	return a.call(ctx, "account", "txlist", p)
}

// AllTransactions accumulates up to limit transactions, newest first unless
// opts.Sort says otherwise.
func (a *API) AllTransactions(ctx context.Context, addr string, opts ListOptions, limit int) ([]client.Record, error) {
	p := client.Params{"module": "account", "action": "txlist", "address": addr}
	opts.Page, opts.Offset = 0, 0
	if err := opts.apply(p, SortDesc); err != nil {
		return nil, err
	}
	return a.acc.Accumulate(ctx, p, min(pagination.MaxPageSize, limit), limit)
}

// InternalOptions selects internal transactions by address or transaction hash.
type InternalOptions struct {
	Address string
	TxHash  string
	ListOptions
}

// InternalTransactions returns one page of internal transactions.
func (a *API) InternalTransactions(ctx context.Context, opts InternalOptions) (*client.Envelope, error) {
	if opts.Address == "" && opts.TxHash == "" {
		return nil, ErrAddressOrTxHash
	}
	p := client.Params{}
	if opts.Address != "" {
		p["address"] = opts.Address
	}
	if opts.TxHash != "" {
		p["txhash"] = opts.TxHash
	}
	if err := pageDefaults(opts.ListOptions).apply(p, SortAsc); err != nil {
		return nil, err
	}
	return a.call(ctx, "account", "txlistinternal", p)
}

// TokenTransfers returns one page of token transfer events, optionally
// filtered by token contract.
func (a *API) TokenTransfers(ctx context.Context, addr, contract string, opts ListOptions) (*client.Envelope, error) {
	p := client.Params{"address": addr}
	if contract != "" {
		p["contractaddress"] = contract
	}
	if err := pageDefaults(opts).apply(p, SortAsc); err != nil {
		return nil, err
	}
	return a.call(ctx, "account", "tokentx", p)
}

// AllTokenTransfers accumulates up to limit transfers, 100 per page, newest first.
func (a *API) AllTokenTransfers(ctx context.Context, addr, contract string, opts ListOptions, limit int) ([]client.Record, error) {
	p := client.Params{"module": "account", "action": "tokentx", "address": addr}
	if contract != "" {
		p["contractaddress"] = contract
	}
	opts.Page, opts.Offset = 0, 0
	if err := opts.apply(p, SortDesc); err != nil {
		return nil, err
	}
	return a.acc.Accumulate(ctx, p, pagination.MaxPageSize, limit)
}

// TokenBalance returns the balance of a token held by addr.
func (a *API) TokenBalance(ctx context.Context, contract, addr string) (*client.Envelope, error) {
	return a.call(ctx, "account", "tokenbalance", client.Params{
		"contractaddress": contract,
		"address":         addr,
	})
}

// TokenList returns the tokens owned by addr.
func (a *API) TokenList(ctx context.Context, addr string) (*client.Envelope, error) {
	return a.call(ctx, "account", "tokenlist", client.Params{"address": addr})
}

// BlockReward returns reward data for block n.
func (a *API) BlockReward(ctx context.Context, n int64) (*client.Envelope, error) {
	return a.call(ctx, "block", "getblockreward", client.Params{"blockno": strconv.FormatInt(n, 10)})
}

// BlockNumberByTime returns the block closest to a unix timestamp.
func (a *API) BlockNumberByTime(ctx context.Context, timestamp int64, closest string) (*client.Envelope, error) {
	if closest == "" {
		closest = ClosestBefore
	}
	if closest != ClosestBefore && closest != ClosestAfter {
		return nil, ErrInvalidClosest
	}
	return a.call(ctx, "block", "getblocknobytime", client.Params{
		"timestamp": strconv.FormatInt(timestamp, 10),
		"closest":   closest,
	})
}

// ContractABI returns the ABI of a verified contract as a JSON string.
func (a *API) ContractABI(ctx context.Context, addr string) (*client.Envelope, error) {
	return a.call(ctx, "contract", "getabi", client.Params{"address": addr})
}

// ContractSource returns the verified source code and metadata of a contract.
func (a *API) ContractSource(ctx context.Context, addr string) (*client.Envelope, error) {
	return a.call(ctx, "contract", "getsourcecode", client.Params{"address": addr})
}

// TransactionInfo returns details of a transaction.
func (a *API) TransactionInfo(ctx context.Context, hash string) (*client.Envelope, error) {
	return a.call(ctx, "transaction", "gettxinfo", client.Params{"txhash": hash})
}

// TransactionReceiptStatus returns the receipt status of a transaction.
func (a *API) TransactionReceiptStatus(ctx context.Context, hash string) (*client.Envelope, error) {
	return a.call(ctx, "transaction", "gettxreceiptstatus", client.Params{"txhash": hash})
}

// TransactionStatus returns the execution error status of a transaction.
func (a *API) TransactionStatus(ctx context.Context, hash string) (*client.Envelope, error) {
	return a.call(ctx, "transaction", "getstatus", client.Params{"txhash": hash})
}

// TokenInfo returns token metadata.
func (a *API) TokenInfo(ctx context.Context, contract string) (*client.Envelope, error) {
	return a.call(ctx, "token", "getToken", client.Params{"contractaddress": contract})
}

// TokenHolders returns one page of token holders.
func (a *API) TokenHolders(ctx context.Context, contract string, page, offset int) (*client.Envelope, error) {
	if page <= 0 {
		page = 1
	}
	if offset <= 0 {
		offset = 10
	}
	return a.call(ctx, "token", "getTokenHolders", client.Params{
		"contractaddress": contract,
		"page":            strconv.Itoa(page),
		"offset":          strconv.Itoa(offset),
	})
}

// AllTokenHolders accumulates up to limit holders.
func (a *API) AllTokenHolders(ctx context.Context, contract string, limit int) ([]client.Record, error) {
	p := client.Params{"module": "token", "action": "getTokenHolders", "contractaddress": contract}
	return a.acc.Accumulate(ctx, p, min(pagination.MaxPageSize, limit), limit)
}

// TokenSupply returns the total supply of a token.
func (a *API) TokenSupply(ctx context.Context, contract string) (*client.Envelope, error) {
	return a.call(ctx, "stats", "tokensupply", client.Params{"contractaddress": contract})
}

// EthSupply returns the native coin supply in wei.
func (a *API) EthSupply(ctx context.Context) (*client.Envelope, error) {
	return a.call(ctx, "stats", "ethsupply", client.Params{})
}

// CoinPrice returns the latest native coin price.
func (a *API) CoinPrice(ctx context.Context) (*client.Envelope, error) {
	return a.call(ctx, "stats", "coinprice", client.Params{})
}

// Blocks walks start..end inclusive through BlockReward.
func (a *API) Blocks(ctx context.Context, start, end int64) (*pagination.BlockResult, error) {
	return a.acc.AccumulateBlocks(ctx, start, end, a.BlockReward)
}
