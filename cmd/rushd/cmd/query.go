package cmd

import (
	"github.com/spf13/cobra"

	"github.com/solrush/rush/app"
	ammtypes "github.com/solrush/rush/x/amm/types"
	dcatypes "github.com/solrush/rush/x/dca/types"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perptypes "github.com/solrush/rush/x/perp/types"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

type queryFunc func(cmd *cobra.Command, args []string, engine *app.App) (any, error)

func newQueryCmd(use, short string, args cobra.PositionalArgs, fn queryFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, closeFn, err := openEngine(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := fn(cmd, args, engine)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func queryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"q"},
		Short:   "Read committed engine state",
	}

	cmd.AddCommand(
		newQueryCmd("balance [address] [denom]", "Balance of one denom", cobra.ExactArgs(2),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				addr, err := resolveAddress(cmd, args[0])
				if err != nil {
					return nil, err
				}
				return engine.Balance(cmd.Context(), addr, args[1])
			}),
		newQueryCmd("balances [address]", "All balances of an account", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				addr, err := resolveAddress(cmd, args[0])
				if err != nil {
					return nil, err
				}
				return engine.Balances(cmd.Context(), addr)
			}),
		newQueryCmd("supply [denom]", "Total supply of a denom", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				return engine.Supply(cmd.Context(), args[0])
			}),
		newQueryCmd("account-info [address]", "Purpose and owner of an engine-held account", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				addr, err := resolveAddress(cmd, args[0])
				if err != nil {
					return nil, err
				}
				return engine.AccountInfo(cmd.Context(), addr)
			}),
		newQueryCmd("pool [pool-id]", "A pool by id", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.Pool(cmd.Context(), poolID)
			}),
		newQueryCmd("pool-by-pair [base] [quote]", "The pool of a trading pair", cobra.ExactArgs(2),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				return engine.PoolByPair(cmd.Context(), ammtypes.NewTradingPair(args[0], args[1]))
			}),
		newQueryCmd("pools", "All pools", cobra.NoArgs,
			func(cmd *cobra.Command, _ []string, engine *app.App) (any, error) {
				return engine.Pools(cmd.Context())
			}),
		newQueryCmd("spot-price [pool-id]", "Quote per base scaled by 1e9", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.SpotPrice(cmd.Context(), poolID)
			}),
		newQueryCmd("quote-swap [pool-id] [buy|sell] [amount-in]", "Simulate a swap without executing it", cobra.ExactArgs(3),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				side, err := sharedtypes.ParseSide(args[1])
				if err != nil {
					return nil, err
				}
				amountIn, err := parseAmount("amount in", args[2])
				if err != nil {
					return nil, err
				}
				return engine.QuoteSwap(cmd.Context(), poolID, side, amountIn)
			}),
		newQueryCmd("fee-info [pool-id]", "Fee rate and accumulated fees of a pool", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.FeeInfo(cmd.Context(), poolID)
			}),
		newQueryCmd("lp-balance [pool-id] [address]", "LP tokens held by a provider", cobra.ExactArgs(2),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				addr, err := resolveAddress(cmd, args[1])
				if err != nil {
					return nil, err
				}
				return engine.LPBalance(cmd.Context(), poolID, addr)
			}),
		newQueryCmd("limit-order [order-id]", "A limit order by id", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				id, err := orderbooktypes.ParseOrderID(args[0])
				if err != nil {
					return nil, err
				}
				return engine.LimitOrder(cmd.Context(), id)
			}),
		newQueryCmd("limit-orders-by-owner [address]", "Every limit order of an owner", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				addr, err := resolveAddress(cmd, args[0])
				if err != nil {
					return nil, err
				}
				return engine.LimitOrdersByOwner(cmd.Context(), addr)
			}),
		newQueryCmd("open-limit-orders [pool-id]", "Open limit orders of one pool, or of all pools", cobra.MaximumNArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				if len(args) == 0 {
					return engine.AllOpenLimitOrders(cmd.Context())
				}
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.OpenLimitOrders(cmd.Context(), poolID)
			}),
		newQueryCmd("dca-order [order-id]", "A DCA order by id", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				id, err := dcatypes.ParseOrderID(args[0])
				if err != nil {
					return nil, err
				}
				return engine.DCAOrder(cmd.Context(), id)
			}),
		newQueryCmd("dca-orders-by-owner [address]", "Every DCA order of an owner", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				addr, err := resolveAddress(cmd, args[0])
				if err != nil {
					return nil, err
				}
				return engine.DCAOrdersByOwner(cmd.Context(), addr)
			}),
		newQueryCmd("due-dca-orders", "Active DCA orders whose next cycle is due", cobra.NoArgs,
			func(cmd *cobra.Command, _ []string, engine *app.App) (any, error) {
				return engine.DueDCAOrders(cmd.Context())
			}),
		newQueryCmd("position [position-id]", "A position by id", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				id, err := perptypes.ParsePositionID(args[0])
				if err != nil {
					return nil, err
				}
				return engine.Position(cmd.Context(), id)
			}),
		newQueryCmd("positions-by-owner [address]", "Every position of an owner", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				addr, err := resolveAddress(cmd, args[0])
				if err != nil {
					return nil, err
				}
				return engine.PositionsByOwner(cmd.Context(), addr)
			}),
		newQueryCmd("open-positions [pool-id]", "Open positions on a pool", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.OpenPositions(cmd.Context(), poolID)
			}),
		newQueryCmd("position-health [position-id]", "Unrealized pnl and distance to liquidation", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				id, err := perptypes.ParsePositionID(args[0])
				if err != nil {
					return nil, err
				}
				return engine.PositionHealth(cmd.Context(), id)
			}),
		newQueryCmd("liquidatable-positions [pool-id]", "Open positions past their liquidation price", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.LiquidatablePositions(cmd.Context(), poolID)
			}),
		newQueryCmd("perp-params", "Perpetual engine parameters", cobra.NoArgs,
			func(cmd *cobra.Command, _ []string, engine *app.App) (any, error) {
				return engine.PerpParams(cmd.Context())
			}),
		newQueryCmd("funding-state [pool-id]", "Cumulative funding index of a pool", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.FundingState(cmd.Context(), poolID)
			}),
		newQueryCmd("insurance-balance [pool-id]", "Insurance fund of a pool", cobra.ExactArgs(1),
			func(cmd *cobra.Command, args []string, engine *app.App) (any, error) {
				poolID, err := parseUint64("pool id", args[0])
				if err != nil {
					return nil, err
				}
				return engine.InsuranceBalance(cmd.Context(), poolID)
			}),
	)
	return cmd
}
