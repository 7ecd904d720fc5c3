package cmd

import (
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"

	"github.com/solrush/rush/app"
	ammtypes "github.com/solrush/rush/x/amm/types"
	dcakeeper "github.com/solrush/rush/x/dca/keeper"
	dcatypes "github.com/solrush/rush/x/dca/types"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perptypes "github.com/solrush/rush/x/perp/types"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

const (
	flagFeeBps            = "fee-bps"
	flagMinLP             = "min-lp"
	flagMinBase           = "min-base"
	flagMinQuote          = "min-quote"
	flagMinOut            = "min-out"
	flagSlippageBps       = "slippage-bps"
	flagExpiresIn         = "expires-in"
	flagMinPrice          = "min-price"
	flagMaxPrice          = "max-price"
	flagMaxLeverage       = "max-leverage"
	flagLiquidationFeeBps = "liquidation-fee-bps"
)

// txFunc runs one engine operation for the account named by --from.
type txFunc func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error)

func newTxCmd(use, short string, args cobra.PositionalArgs, fn txFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := fromAddress(cmd)
			if err != nil {
				return err
			}
			engine, _, closeFn, err := openEngine(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			result, events, opErr := fn(cmd, args, engine, from)
			return printTx(cmd, result, events, opErr)
		},
	}
	cmd.Flags().String(flagFrom, "", "account executing the operation (address or key name)")
	return cmd
}

func txCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Engine operations",
	}

	cmd.AddCommand(
		createPoolCmd(),
		addLiquidityCmd(),
		removeLiquidityCmd(),
		swapCmd(),
		placeLimitOrderCmd(),
		cancelLimitOrderCmd(),
		executeLimitOrderCmd(),
		processExpiredOrdersCmd(),
		createDCACmd(),
		executeDCACmd(),
		cancelDCACmd(),
		openPositionCmd(),
		addMarginCmd(),
		closePositionCmd(),
		liquidateCmd(),
		depositInsuranceCmd(),
		updateFundingRateCmd(),
		pausePoolCmd(),
		resumePoolCmd(),
		updateFeeRateCmd(),
		updatePerpParamsCmd(),
		fundCmd(),
	)
	return cmd
}

func createPoolCmd() *cobra.Command {
	cmd := newTxCmd("create-pool [base] [quote]", "Create a constant-product pool for a trading pair", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			s, err := stateFromCmd(cmd)
			if err != nil {
				return nil, nil, err
			}
			feeBps := s.cfg.DefaultFeeBps
			if cmd.Flags().Changed(flagFeeBps) {
				feeBps, _ = cmd.Flags().GetUint32(flagFeeBps)
			}
			return engine.InitializePool(cmd.Context(), from, ammtypes.NewTradingPair(args[0], args[1]), feeBps)
		})
	cmd.Flags().Uint32(flagFeeBps, 0, "swap fee in basis points (default from config)")
	return cmd
}

func addLiquidityCmd() *cobra.Command {
	cmd := newTxCmd("add-liquidity [pool-id] [amount-base] [amount-quote]", "Deposit both reserves and mint LP tokens", cobra.ExactArgs(3),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			amountA, err := parseAmount("base amount", args[1])
			if err != nil {
				return nil, nil, err
			}
			amountB, err := parseAmount("quote amount", args[2])
			if err != nil {
				return nil, nil, err
			}
			minLp, err := amountFlag(cmd, flagMinLP)
			if err != nil {
				return nil, nil, err
			}
			return engine.AddLiquidity(cmd.Context(), from, poolID, amountA, amountB, minLp)
		})
	cmd.Flags().String(flagMinLP, "", "minimum LP tokens to mint")
	return cmd
}

func removeLiquidityCmd() *cobra.Command {
	cmd := newTxCmd("remove-liquidity [pool-id] [lp-amount]", "Burn LP tokens for a pro-rata share of reserves", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			lp, err := parseAmount("lp amount", args[1])
			if err != nil {
				return nil, nil, err
			}
			minA, err := amountFlag(cmd, flagMinBase)
			if err != nil {
				return nil, nil, err
			}
			minB, err := amountFlag(cmd, flagMinQuote)
			if err != nil {
				return nil, nil, err
			}
			return engine.RemoveLiquidity(cmd.Context(), from, poolID, lp, minA, minB)
		})
	cmd.Flags().String(flagMinBase, "", "minimum base amount out")
	cmd.Flags().String(flagMinQuote, "", "minimum quote amount out")
	return cmd
}

func swapCmd() *cobra.Command {
	cmd := newTxCmd("swap [pool-id] [buy|sell] [amount-in]", "Swap against a pool", cobra.ExactArgs(3),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			side, err := sharedtypes.ParseSide(args[1])
			if err != nil {
				return nil, nil, err
			}
			amountIn, err := parseAmount("amount in", args[2])
			if err != nil {
				return nil, nil, err
			}
			minOut, err := amountFlag(cmd, flagMinOut)
			if err != nil {
				return nil, nil, err
			}
			return engine.Swap(cmd.Context(), from, poolID, side, amountIn, minOut)
		})
	cmd.Flags().String(flagMinOut, "", "minimum amount out")
	return cmd
}

func placeLimitOrderCmd() *cobra.Command {
	cmd := newTxCmd("place-limit-order [pool-id] [buy|sell] [amount-in] [limit-price]", "Escrow funds behind a limit order", cobra.ExactArgs(4),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			side, err := sharedtypes.ParseSide(args[1])
			if err != nil {
				return nil, nil, err
			}
			amountIn, err := parseAmount("amount in", args[2])
			if err != nil {
				return nil, nil, err
			}
			limitPrice, err := parseAmount("limit price", args[3])
			if err != nil {
				return nil, nil, err
			}
			slippage, _ := cmd.Flags().GetUint32(flagSlippageBps)
			expiresIn, _ := cmd.Flags().GetDuration(flagExpiresIn)
			var expiresAt int64
			if expiresIn > 0 {
				expiresAt = time.Now().Add(expiresIn).Unix()
			}
			return engine.PlaceLimitOrder(cmd.Context(), from, poolID, side, amountIn, limitPrice, slippage, expiresAt)
		})
	cmd.Flags().Uint32(flagSlippageBps, 100, "slippage tolerance in basis points")
	cmd.Flags().Duration(flagExpiresIn, 0, "time until the order expires (0 disables expiry)")
	return cmd
}

func cancelLimitOrderCmd() *cobra.Command {
	return newTxCmd("cancel-limit-order [order-id]", "Cancel an open limit order and refund its escrow", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			id, err := orderbooktypes.ParseOrderID(args[0])
			if err != nil {
				return nil, nil, err
			}
			return engine.CancelLimitOrder(cmd.Context(), from, id)
		})
}

func executeLimitOrderCmd() *cobra.Command {
	return newTxCmd("execute-limit-order [order-id]", "Fill a limit order whose price condition holds", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			id, err := orderbooktypes.ParseOrderID(args[0])
			if err != nil {
				return nil, nil, err
			}
			return engine.ExecuteLimitOrder(cmd.Context(), from, id)
		})
}

func processExpiredOrdersCmd() *cobra.Command {
	return newTxCmd("process-expired-orders", "Expire and refund every limit order past its deadline", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			n, events, err := engine.ProcessExpiredOrders(cmd.Context(), from)
			return map[string]int{"expired": n}, events, err
		})
}

func createDCACmd() *cobra.Command {
	cmd := newTxCmd("create-dca [pool-id] [buy|sell] [amount-per-cycle] [cycles] [frequency]", "Escrow a recurring order", cobra.ExactArgs(5),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			side, err := sharedtypes.ParseSide(args[1])
			if err != nil {
				return nil, nil, err
			}
			perCycle, err := parseAmount("amount per cycle", args[2])
			if err != nil {
				return nil, nil, err
			}
			cycles, err := parseUint64("cycles", args[3])
			if err != nil {
				return nil, nil, err
			}
			freq, err := time.ParseDuration(args[4])
			if err != nil {
				return nil, nil, err
			}
			slippage, _ := cmd.Flags().GetUint32(flagSlippageBps)
			minPrice, err := amountFlag(cmd, flagMinPrice)
			if err != nil {
				return nil, nil, err
			}
			maxPrice, err := amountFlag(cmd, flagMaxPrice)
			if err != nil {
				return nil, nil, err
			}
			return engine.CreateDCAOrder(cmd.Context(), from, dcakeeper.DCAOrderParams{
				PoolID:                poolID,
				Side:                  side,
				AmountPerCycle:        perCycle,
				TotalCycles:           cycles,
				CycleFrequencySeconds: int64(freq / time.Second),
				SlippageToleranceBps:  slippage,
				MinPrice:              minPrice,
				MaxPrice:              maxPrice,
			})
		})
	cmd.Flags().Uint32(flagSlippageBps, 100, "slippage tolerance in basis points")
	cmd.Flags().String(flagMinPrice, "", "skip cycles below this spot price")
	cmd.Flags().String(flagMaxPrice, "", "skip cycles above this spot price (empty for no bound)")
	return cmd
}

func executeDCACmd() *cobra.Command {
	return newTxCmd("execute-dca [order-id]", "Run the due cycle of a DCA order", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			id, err := dcatypes.ParseOrderID(args[0])
			if err != nil {
				return nil, nil, err
			}
			return engine.ExecuteDCAOrder(cmd.Context(), from, id)
		})
}

func cancelDCACmd() *cobra.Command {
	return newTxCmd("cancel-dca [order-id]", "Cancel a DCA order and refund the unspent escrow", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			id, err := dcatypes.ParseOrderID(args[0])
			if err != nil {
				return nil, nil, err
			}
			return engine.CancelDCAOrder(cmd.Context(), from, id)
		})
}

func openPositionCmd() *cobra.Command {
	return newTxCmd("open-position [pool-id] [long|short] [size] [leverage] [margin]", "Open a leveraged perpetual position", cobra.ExactArgs(5),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			side, err := pricing.ParsePositionSide(args[1])
			if err != nil {
				return nil, nil, err
			}
			size, err := parseAmount("size", args[2])
			if err != nil {
				return nil, nil, err
			}
			leverage, err := parseUint32("leverage", args[3])
			if err != nil {
				return nil, nil, err
			}
			margin, err := parseAmount("margin", args[4])
			if err != nil {
				return nil, nil, err
			}
			return engine.OpenPosition(cmd.Context(), from, poolID, side, size, leverage, margin)
		})
}

func addMarginCmd() *cobra.Command {
	return newTxCmd("add-margin [position-id] [amount]", "Top up the margin of an open position", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			id, err := perptypes.ParsePositionID(args[0])
			if err != nil {
				return nil, nil, err
			}
			amount, err := parseAmount("amount", args[1])
			if err != nil {
				return nil, nil, err
			}
			return engine.AddMargin(cmd.Context(), from, id, amount)
		})
}

func closePositionCmd() *cobra.Command {
	return newTxCmd("close-position [position-id]", "Close a position at the current price", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			id, err := perptypes.ParsePositionID(args[0])
			if err != nil {
				return nil, nil, err
			}
			return engine.ClosePosition(cmd.Context(), from, id)
		})
}

func liquidateCmd() *cobra.Command {
	return newTxCmd("liquidate [position-id]", "Liquidate a position past its liquidation price", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			id, err := perptypes.ParsePositionID(args[0])
			if err != nil {
				return nil, nil, err
			}
			return engine.Liquidate(cmd.Context(), from, id)
		})
}

func depositInsuranceCmd() *cobra.Command {
	return newTxCmd("deposit-insurance [pool-id] [amount]", "Add quote tokens to a pool's insurance fund", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			amount, err := parseAmount("amount", args[1])
			if err != nil {
				return nil, nil, err
			}
			events, err := engine.DepositInsurance(cmd.Context(), from, poolID, amount)
			return nil, events, err
		})
}

func updateFundingRateCmd() *cobra.Command {
	return newTxCmd("update-funding-rate [pool-id] [rate-ppm]", "Accrue a funding rate into a pool's funding index (authority)", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			rate, err := parseInt64("rate", args[1])
			if err != nil {
				return nil, nil, err
			}
			return engine.UpdateFundingRate(cmd.Context(), from, poolID, rate)
		})
}

func pausePoolCmd() *cobra.Command {
	return newTxCmd("pause-pool [pool-id]", "Stop swaps and triggers on a pool (authority)", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			events, err := engine.PausePool(cmd.Context(), from, poolID)
			return nil, events, err
		})
}

func resumePoolCmd() *cobra.Command {
	return newTxCmd("resume-pool [pool-id]", "Resume a paused pool (authority)", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			events, err := engine.ResumePool(cmd.Context(), from, poolID)
			return nil, events, err
		})
}

func updateFeeRateCmd() *cobra.Command {
	return newTxCmd("update-fee-rate [pool-id] [fee-bps]", "Change a pool's swap fee (authority)", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			poolID, err := parseUint64("pool id", args[0])
			if err != nil {
				return nil, nil, err
			}
			feeBps, err := parseUint32("fee bps", args[1])
			if err != nil {
				return nil, nil, err
			}
			events, err := engine.UpdateFeeRate(cmd.Context(), from, poolID, feeBps)
			return nil, events, err
		})
}

func updatePerpParamsCmd() *cobra.Command {
	cmd := newTxCmd("update-perp-params", "Replace the perpetual engine parameters (authority)", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			s, err := stateFromCmd(cmd)
			if err != nil {
				return nil, nil, err
			}
			params := s.cfg.Perp
			if cmd.Flags().Changed(flagMaxLeverage) {
				params.MaxLeverage, _ = cmd.Flags().GetUint32(flagMaxLeverage)
			}
			if cmd.Flags().Changed(flagLiquidationFeeBps) {
				params.LiquidationFeeBps, _ = cmd.Flags().GetUint32(flagLiquidationFeeBps)
			}
			events, err := engine.UpdatePerpParams(cmd.Context(), from, params)
			return params, events, err
		})
	cmd.Flags().Uint32(flagMaxLeverage, 0, "maximum leverage (default from config)")
	cmd.Flags().Uint32(flagLiquidationFeeBps, 0, "liquidator share of remaining margin in basis points (default from config)")
	return cmd
}

func fundCmd() *cobra.Command {
	return newTxCmd("fund [address] [coins]", "Mint coins to an account (authority, development only)", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, engine *app.App, from sdk.AccAddress) (any, sdk.Events, error) {
			to, err := resolveAddress(cmd, args[0])
			if err != nil {
				return nil, nil, err
			}
			coins, err := sdk.ParseCoinsNormalized(args[1])
			if err != nil {
				return nil, nil, err
			}
			events, err := engine.Fund(cmd.Context(), from, to, coins)
			return coins, events, err
		})
}
