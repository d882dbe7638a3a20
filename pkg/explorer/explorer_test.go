package explorer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/jarcoal/httpmock"
)

const testBaseURL = "https://explorer.test/api"

// setupAPI wires an API to an httpmock transport that records every query.
func setupAPI(t *testing.T, body string) (*API, *httpmock.MockTransport, *[]url.Values) {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = testBaseURL
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	mock := httpmock.NewMockTransport()
	c.SetHTTPClient(&http.Client{Transport: mock})
	c.SetSleeper(func(context.Context, time.Duration) error { return nil })

	var queries []url.Values
	mock.RegisterResponder(http.MethodGet, testBaseURL, func(req *http.Request) (*http.Response, error) {
		queries = append(queries, req.URL.Query())
		return httpmock.NewStringResponse(http.StatusOK, body), nil
	})

	return New(c, nil), mock, &queries
}

func TestAPI_RequestParams(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(a *API) (*client.Envelope, error)
		want map[string]string
	}{
		{
			name: "balance",
			call: func(a *API) (*client.Envelope, error) { return a.Balance(ctx, "0xabc") },
			want: map[string]string{"module": "account", "action": "balance", "address": "0xabc"},
		},
		{
			name: "balancemulti joins addresses",
			call: func(a *API) (*client.Envelope, error) { return a.BalanceMulti(ctx, []string{"0x1", "0x2"}) },
			want: map[string]string{"module": "account", "action": "balancemulti", "address": "0x1,0x2"},
		},
		{
			name: "txlist defaults",
			call: func(a *API) (*client.Envelope, error) { return a.Transactions(ctx, "0xabc", ListOptions{}) },
			want: map[string]string{"action": "txlist", "page": "1", "offset": "10", "sort": "desc"},
		},
		{
			name: "txlist with block range",
			call: func(a *API) (*client.Envelope, error) {
				return a.Transactions(ctx, "0xabc", ListOptions{StartBlock: Block(5), EndBlock: Block(9), Sort: SortAsc})
			},
			want: map[string]string{"startblock": "5", "endblock": "9", "sort": "asc"},
		},
		{
			name: "txlistinternal by hash",
			call: func(a *API) (*client.Envelope, error) {
				return a.InternalTransactions(ctx, InternalOptions{TxHash: "0xdead"})
			},
			want: map[string]string{"action": "txlistinternal", "txhash": "0xdead", "sort": "asc"},
		},
		{
			name: "tokentx with contract",
			call: func(a *API) (*client.Envelope, error) {
				return a.TokenTransfers(ctx, "0xabc", "0xtoken", ListOptions{})
			},
			want: map[string]string{"action": "tokentx", "contractaddress": "0xtoken", "sort": "asc"},
		},
		{
			name: "tokenbalance",
			call: func(a *API) (*client.Envelope, error) { return a.TokenBalance(ctx, "0xtoken", "0xabc") },
			want: map[string]string{"action": "tokenbalance", "contractaddress": "0xtoken", "address": "0xabc"},
		},
		{
			name: "tokenlist",
			call: func(a *API) (*client.Envelope, error) { return a.TokenList(ctx, "0xabc") },
			want: map[string]string{"module": "account", "action": "tokenlist"},
		},
		{
			name: "getblockreward",
			call: func(a *API) (*client.Envelope, error) { return a.BlockReward(ctx, 34090) },
			want: map[string]string{"module": "block", "action": "getblockreward", "blockno": "34090"},
		},
		{
			name: "getblocknobytime defaults to before",
			call: func(a *API) (*client.Envelope, error) { return a.BlockNumberByTime(ctx, 1700000000, "") },
			want: map[string]string{"action": "getblocknobytime", "timestamp": "1700000000", "closest": "before"},
		},
		{
			name: "getabi",
			call: func(a *API) (*client.Envelope, error) { return a.ContractABI(ctx, "0xc") },
			want: map[string]string{"module": "contract", "action": "getabi", "address": "0xc"},
		},
		{
			name: "getsourcecode",
			call: func(a *API) (*client.Envelope, error) { return a.ContractSource(ctx, "0xc") },
			want: map[string]string{"module": "contract", "action": "getsourcecode"},
		},
		{
			name: "gettxinfo",
			call: func(a *API) (*client.Envelope, error) { return a.TransactionInfo(ctx, "0xh") },
			want: map[string]string{"module": "transaction", "action": "gettxinfo", "txhash": "0xh"},
		},
		{
			name: "gettxreceiptstatus",
			call: func(a *API) (*client.Envelope, error) { return a.TransactionReceiptStatus(ctx, "0xh") },
			want: map[string]string{"action": "gettxreceiptstatus", "txhash": "0xh"},
		},
		{
			name: "getstatus",
			call: func(a *API) (*client.Envelope, error) { return a.TransactionStatus(ctx, "0xh") },
			want: map[string]string{"action": "getstatus", "txhash": "0xh"},
		},
		{
			name: "getToken",
			call: func(a *API) (*client.Envelope, error) { return a.TokenInfo(ctx, "0xtoken") },
			want: map[string]string{"module": "token", "action": "getToken", "contractaddress": "0xtoken"},
		},
		{
			name: "getTokenHolders",
			call: func(a *API) (*client.Envelope, error) { return a.TokenHolders(ctx, "0xtoken", 2, 50) },
			want: map[string]string{"action": "getTokenHolders", "page": "2", "offset": "50"},
		},
		{
			name: "tokensupply",
			call: func(a *API) (*client.Envelope, error) { return a.TokenSupply(ctx, "0xtoken") },
			want: map[string]string{"module": "stats", "action": "tokensupply"},
		},
		{
			name: "ethsupply",
			call: func(a *API) (*client.Envelope, error) { return a.EthSupply(ctx) },
			want: map[string]string{"module": "stats", "action": "ethsupply"},
		},
		{
			name: "coinprice",
			call: func(a *API) (*client.Envelope, error) { return a.CoinPrice(ctx) },
			want: map[string]string{"module": "stats", "action": "coinprice"},
		},
		{
			name: "getLogs with topics",
			call: func(a *API) (*client.Envelope, error) {
				return a.Logs(ctx, LogFilter{FromBlock: 1, ToBlock: 2, Address: "0xc", Topic0: "0xt0", Topic1: "0xt1", Topic01Opr: TopicAnd})
			},
			want: map[string]string{
				"module": "logs", "action": "getLogs", "fromBlock": "1", "toBlock": "2",
				"address": "0xc", "topic0": "0xt0", "topic1": "0xt1", "topic0_1_opr": "and",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, _, queries := setupAPI(t, `{"status":"1","message":"OK","result":[]}`)

			env, err := tt.call(api)
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if !env.OK() {
				t.Errorf("Expected status 1")
			}
			if len(*queries) != 1 {
				t.Fatalf("Expected 1 request, got %d", len(*queries))
			}
			q := (*queries)[0]
			for k, v := range tt.want {
				if got := q.Get(k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestAPI_ArgumentValidation(t *testing.T) {
	ctx := context.Background()
	tooMany := make([]string, MaxMultiBalanceAddresses+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("0x%d", i)
	}

	tests := []struct {
		name string
		call func(a *API) (*client.Envelope, error)
		want error
	}{
		{"balancemulti over limit", func(a *API) (*client.Envelope, error) { return a.BalanceMulti(ctx, tooMany) }, ErrTooManyAddresses},
		{"balancemulti empty", func(a *API) (*client.Envelope, error) { return a.BalanceMulti(ctx, nil) }, ErrNoAddresses},
		{"internal without selector", func(a *API) (*client.Envelope, error) {
			return a.InternalTransactions(ctx, InternalOptions{})
		}, ErrAddressOrTxHash},
		{"closest invalid", func(a *API) (*client.Envelope, error) { return a.BlockNumberByTime(ctx, 1, "nearest") }, ErrInvalidClosest},
		{"sort invalid", func(a *API) (*client.Envelope, error) {
			return a.Transactions(ctx, "0xabc", ListOptions{Sort: "random"})
		}, ErrInvalidSort},
		{"topic operator invalid", func(a *API) (*client.Envelope, error) {
			return a.Logs(ctx, LogFilter{Topic0: "0x1", Topic01Opr: "xor"})
		}, ErrInvalidTopicOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, _, queries := setupAPI(t, `{"status":"1","message":"OK","result":[]}`)

			_, err := tt.call(api)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(*queries) != 0 {
				t.Errorf("No request should be made on invalid arguments, got %d", len(*queries))
			}
		})
	}
}

func TestAPI_BalanceMultiAtLimit(t *testing.T) {
	api, _, queries := setupAPI(t, `{"status":"1","message":"OK","result":[]}`)

	addrs := make([]string, MaxMultiBalanceAddresses)
	for i := range addrs {
		addrs[i] = "0x" + strconv.Itoa(i)
	}
	if _, err := api.BalanceMulti(context.Background(), addrs); err != nil {
		t.Fatalf("20 addresses must be accepted: %v", err)
	}
	if got := strings.Count((*queries)[0].Get("address"), ","); got != 19 {
		t.Errorf("Expected 19 separators, got %d", got)
	}
}

func TestAPI_AllTransactionsPaginates(t *testing.T) {
	cfg := client.DefaultConfig()
	cfg.BaseURL = testBaseURL
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	mock := httpmock.NewMockTransport()
	c.SetHTTPClient(&http.Client{Transport: mock})

	var pages []string
	mock.RegisterResponder(http.MethodGet, testBaseURL, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		pages = append(pages, q.Get("page"))
		if q.Get("sort") != "desc" || q.Get("offset") != "3" {
			return httpmock.NewStringResponse(http.StatusOK, `{"status":"0","message":"bad params","result":"x"}`), nil
		}
		page, _ := strconv.Atoi(q.Get("page"))
		var items []string
		for i := 0; i < 3; i++ {
			items = append(items, fmt.Sprintf(`{"hash":"0x%d"}`, (page-1)*3+i))
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"status":"1","message":"OK","result":[`+strings.Join(items, ",")+`]}`), nil
	})

	api := New(c, nil)
	txs, err := api.AllTransactions(context.Background(), "0xabc", ListOptions{}, 3)
	if err != nil {
		t.Fatalf("AllTransactions() failed: %v", err)
	}
	if len(txs) != 3 {
		t.Errorf("Expected 3 transactions, got %d", len(txs))
	}
	if len(pages) != 1 {
		t.Errorf("Expected a single page, got %v", pages)
	}
}

func TestAPI_TransportFailure(t *testing.T) {
	api, mock, _ := setupAPI(t, "")
	mock.RegisterResponder(http.MethodGet, testBaseURL, httpmock.NewErrorResponder(errors.New("connection reset by peer")))

	_, err := api.EthSupply(context.Background())

	var transportErr *client.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *client.TransportError, got %v", err)
	}
	if transportErr.ErrorClass != client.ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want network", transportErr.ErrorClass)
	}
	if got := mock.GetTotalCallCount(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestAPI_Blocks(t *testing.T) {
	api, mock, _ := setupAPI(t, "")
	mock.RegisterResponder(http.MethodGet, testBaseURL, func(req *http.Request) (*http.Response, error) {
		n := req.URL.Query().Get("blockno")
		if n == "101" {
			return httpmock.NewStringResponse(http.StatusOK, `{"status":"0","message":"Block not found","result":null}`), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"status":"1","message":"OK","result":{"blockNumber":"`+n+`"}}`), nil
	})

	result, err := api.Blocks(context.Background(), 100, 102)
	if err != nil {
		t.Fatalf("Blocks() failed: %v", err)
	}
	if len(result.Blocks) != 2 {
		t.Errorf("Expected 2 blocks, got %d", len(result.Blocks))
	}
}
