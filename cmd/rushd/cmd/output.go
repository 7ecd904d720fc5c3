package cmd

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

type attributeJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type eventJSON struct {
	Type       string          `json:"type"`
	Attributes []attributeJSON `json:"attributes"`
}

// TxResponse is what every tx subcommand prints.
type TxResponse struct {
	Result any         `json:"result,omitempty"`
	Events []eventJSON `json:"events"`
	Error  string      `json:"error,omitempty"`
}

func convertEvents(events sdk.Events) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, ev := range events {
		attrs := make([]attributeJSON, 0, len(ev.Attributes))
		for _, attr := range ev.Attributes {
			attrs = append(attrs, attributeJSON{Key: attr.Key, Value: attr.Value})
		}
		out = append(out, eventJSON{Type: ev.Type, Attributes: attrs})
	}
	return out
}

func printJSON(cmd *cobra.Command, v any) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return err
}

// printTx prints the outcome of one operation. An operation can commit and
// still fail (an expired limit order is refunded), so events are printed
// whenever there are any.
func printTx(cmd *cobra.Command, result any, events sdk.Events, opErr error) error {
	if opErr != nil && len(events) == 0 {
		return opErr
	}
	resp := TxResponse{Result: result, Events: convertEvents(events)}
	if opErr != nil {
		resp.Result = nil
		resp.Error = opErr.Error()
	}
	if err := printJSON(cmd, resp); err != nil {
		return err
	}
	return opErr
}

func parseAmount(name, value string) (math.Int, error) {
	amount, ok := math.NewIntFromString(value)
	if !ok {
		return math.Int{}, fmt.Errorf("invalid %s %q", name, value)
	}
	return amount, nil
}

func parseUint64(name, value string) (uint64, error) {
	v, err := cast.ToUint64E(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return v, nil
}

func parseUint32(name, value string) (uint32, error) {
	v, err := cast.ToUint32E(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return v, nil
}

// amountFlag reads an optional integer amount flag, defaulting to zero.
func amountFlag(cmd *cobra.Command, name string) (math.Int, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return math.ZeroInt(), nil
	}
	return parseAmount(name, value)
}

func parseInt64(name, value string) (int64, error) {
	v, err := cast.ToInt64E(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return v, nil
}
