package explorer

import (
	"context"
	"errors"
	"strconv"

	"github.com/Sternrassler/rise-explorer-client/pkg/client"
)

// ErrInvalidTopicOperator is returned for operators other than and/or.
var ErrInvalidTopicOperator = errors.New("topic operator must be 'and' or 'or'")

// Topic operators.
const (
	TopicAnd = "and"
	TopicOr  = "or"
)

// LogFilter selects event logs for getLogs.
type LogFilter struct {
	FromBlock int64
	ToBlock   int64
	Address   string

	Topic0 string
	Topic1 string
	Topic2 string
	Topic3 string

	Topic01Opr string
	Topic02Opr string
	Topic03Opr string
	Topic12Opr string
	Topic13Opr string
	Topic23Opr string
}

func (f LogFilter) params() (client.Params, error) {
	p := client.Params{
		"fromBlock": strconv.FormatInt(f.FromBlock, 10),
		"toBlock":   strconv.FormatInt(f.ToBlock, 10),
	}

	optional := []struct {
		key, value string
		operator   bool
	}{
		{"address", f.Address, false},
		{"topic0", f.Topic0, false},
		{"topic1", f.Topic1, false},
		{"topic2", f.Topic2, false},
		{"topic3", f.Topic3, false},
		{"topic0_1_opr", f.Topic01Opr, true},
		{"topic0_2_opr", f.Topic02Opr, true},
		{"topic0_3_opr", f.Topic03Opr, true},
		{"topic1_2_opr", f.Topic12Opr, true},
		{"topic1_3_opr", f.Topic13Opr, true},
		{"topic2_3_opr", f.Topic23Opr, true},
	}
	for _, o := range optional {
		if o.value == "" {
			continue
		}
		if o.operator && o.value != TopicAnd && o.value != TopicOr {
			return nil, ErrInvalidTopicOperator
		}
		p[o.key] = o.value
	}
	return p, nil
}

// Logs returns event logs matching f (the explorer caps results at 1000).
func (a *API) Logs(ctx context.Context, f LogFilter) (*client.Envelope, error) {
	p, err := f.params()
	if err != nil {
		return nil, err
	}
	return a.call(ctx, "logs", "getLogs", p)
}
