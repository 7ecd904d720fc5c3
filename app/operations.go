package app

import (
	"context"
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/solrush/rush/x/amm/types"
	dcakeeper "github.com/solrush/rush/x/dca/keeper"
	dcatypes "github.com/solrush/rush/x/dca/types"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perptypes "github.com/solrush/rush/x/perp/types"
	sharedkeeper "github.com/solrush/rush/x/shared/keeper"
	"github.com/solrush/rush/x/shared/pricing"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// Withdrawal is the pair of amounts returned by RemoveLiquidity.
type Withdrawal struct {
	AmountA math.Int `json:"amount_a"`
	AmountB math.Int `json:"amount_b"`
}

// Liquidity pool operations.

func (app *App) InitializePool(ctx context.Context, creator sdk.AccAddress, pair ammtypes.TradingPair, feeRateBps uint32) (*ammtypes.Pool, sdk.Events, error) {
	op := operation{module: ammtypes.ModuleName, name: "initialize_pool", caller: creator, locks: []string{poolRegistryLock}}
	return execute(ctx, app, op, func(ctx sdk.Context) (*ammtypes.Pool, error) {
		return app.AMMKeeper.InitializePool(ctx, creator, pair, feeRateBps)
	})
}

func (app *App) AddLiquidity(ctx context.Context, provider sdk.AccAddress, poolID uint64, amountA, amountB, minLp math.Int) (math.Int, sdk.Events, error) {
	op := operation{module: ammtypes.ModuleName, name: "add_liquidity", caller: provider, locks: []string{poolLock(poolID), accountLock(provider)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (math.Int, error) {
		return app.AMMKeeper.AddLiquidity(ctx, provider, poolID, amountA, amountB, minLp)
	})
}

func (app *App) RemoveLiquidity(ctx context.Context, provider sdk.AccAddress, poolID uint64, lpBurn, minA, minB math.Int) (Withdrawal, sdk.Events, error) {
	op := operation{module: ammtypes.ModuleName, name: "remove_liquidity", caller: provider, locks: []string{poolLock(poolID), accountLock(provider)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (Withdrawal, error) {
		a, b, err := app.AMMKeeper.RemoveLiquidity(ctx, provider, poolID, lpBurn, minA, minB)
		return Withdrawal{AmountA: a, AmountB: b}, err
	})
}

// Swap is the market order: it trades amountIn against the pool at the
// current price and fails when the output is below minOut.
func (app *App) Swap(ctx context.Context, trader sdk.AccAddress, poolID uint64, side sharedtypes.Side, amountIn, minOut math.Int) (*ammtypes.SwapResult, sdk.Events, error) {
	op := operation{module: ammtypes.ModuleName, name: "swap", caller: trader, locks: []string{poolLock(poolID), accountLock(trader)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (*ammtypes.SwapResult, error) {
		return app.AMMKeeper.Swap(ctx, trader, poolID, side, amountIn, minOut)
	})
}

// Limit order operations.

func (app *App) PlaceLimitOrder(
	ctx context.Context,
	owner sdk.AccAddress,
	poolID uint64,
	side sharedtypes.Side,
	amountIn, limitPrice math.Int,
	slippageToleranceBps uint32,
	expiresAt int64,
) (*orderbooktypes.LimitOrder, sdk.Events, error) {
	op := operation{module: orderbooktypes.ModuleName, name: "place_limit_order", caller: owner, locks: []string{poolLock(poolID), accountLock(owner)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (*orderbooktypes.LimitOrder, error) {
		return app.OrderBookKeeper.PlaceLimitOrder(ctx, owner, poolID, side, amountIn, limitPrice, slippageToleranceBps, expiresAt)
	})
}

func (app *App) CancelLimitOrder(ctx context.Context, caller sdk.AccAddress, id orderbooktypes.OrderID) (*orderbooktypes.LimitOrder, sdk.Events, error) {
	op := operation{module: orderbooktypes.ModuleName, name: "cancel_limit_order", caller: caller, locks: []string{poolLock(id.PoolID), accountLock(caller)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (*orderbooktypes.LimitOrder, error) {
		return app.OrderBookKeeper.CancelLimitOrder(ctx, caller, id)
	})
}

// ExecuteLimitOrder is permissionless. An expired order is refunded and
// marked Expired; that state change is kept although ErrOrderExpired is
// returned.
func (app *App) ExecuteLimitOrder(ctx context.Context, executor sdk.AccAddress, id orderbooktypes.OrderID) (*orderbooktypes.LimitOrder, sdk.Events, error) {
	locks := []string{poolLock(id.PoolID), accountLock(executor)}
	if order, err := app.LimitOrder(ctx, id); err == nil {
		if owner, err := sdk.AccAddressFromBech32(order.Owner); err == nil {
			locks = append(locks, accountLock(owner))
		}
	}

	op := operation{module: orderbooktypes.ModuleName, name: "execute_limit_order", caller: executor, locks: locks}
	return execute(ctx, app, op, func(ctx sdk.Context) (*orderbooktypes.LimitOrder, error) {
		return app.OrderBookKeeper.ExecuteLimitOrder(ctx, executor, id)
	})
}

// ProcessExpiredOrders expires every open limit order past its deadline and
// refunds the escrow. It runs with every other operation excluded.
func (app *App) ProcessExpiredOrders(ctx context.Context, caller sdk.AccAddress) (int, sdk.Events, error) {
	op := operation{module: orderbooktypes.ModuleName, name: "process_expired_orders", caller: caller, exclusive: true}
	return execute(ctx, app, op, func(ctx sdk.Context) (int, error) {
		return app.OrderBookKeeper.ProcessExpiredOrders(ctx)
	})
}

// DCA operations.

func (app *App) CreateDCAOrder(ctx context.Context, owner sdk.AccAddress, params dcakeeper.DCAOrderParams) (*dcatypes.DCAOrder, sdk.Events, error) {
	op := operation{module: dcatypes.ModuleName, name: "create_dca_order", caller: owner, locks: []string{accountLock(owner)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (*dcatypes.DCAOrder, error) {
		return app.DCAKeeper.CreateDCAOrder(ctx, owner, params)
	})
}

// ExecuteDCAOrder is permissionless and runs one due cycle.
func (app *App) ExecuteDCAOrder(ctx context.Context, executor sdk.AccAddress, id dcatypes.OrderID) (*dcatypes.DCAOrder, sdk.Events, error) {
	locks := []string{accountLock(id.Owner), accountLock(executor)}
	if order, err := app.DCAOrder(ctx, id); err == nil {
		locks = append(locks, poolLock(order.PoolID))
	}

	op := operation{module: dcatypes.ModuleName, name: "execute_dca_order", caller: executor, locks: locks}
	return execute(ctx, app, op, func(ctx sdk.Context) (*dcatypes.DCAOrder, error) {
		return app.DCAKeeper.ExecuteDCAOrder(ctx, executor, id)
	})
}

func (app *App) CancelDCAOrder(ctx context.Context, caller sdk.AccAddress, id dcatypes.OrderID) (*dcatypes.DCAOrder, sdk.Events, error) {
	op := operation{module: dcatypes.ModuleName, name: "cancel_dca_order", caller: caller, locks: []string{accountLock(id.Owner), accountLock(caller)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (*dcatypes.DCAOrder, error) {
		return app.DCAKeeper.CancelDCAOrder(ctx, caller, id)
	})
}

// Perpetual operations. Every position operation locks its pool, which also
// guards the pool's insurance fund and funding state.

func (app *App) OpenPosition(
	ctx context.Context,
	owner sdk.AccAddress,
	poolID uint64,
	side pricing.PositionSide,
	size math.Int,
	leverage uint32,
	margin math.Int,
) (*perptypes.Position, sdk.Events, error) {
	op := operation{module: perptypes.ModuleName, name: "open_position", caller: owner, locks: []string{poolLock(poolID), accountLock(owner)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (*perptypes.Position, error) {
		return app.PerpKeeper.OpenPosition(ctx, owner, poolID, side, size, leverage, margin)
	})
}

func (app *App) AddMargin(ctx context.Context, depositor sdk.AccAddress, id perptypes.PositionID, amount math.Int) (*perptypes.Position, sdk.Events, error) {
	op := operation{module: perptypes.ModuleName, name: "add_margin", caller: depositor, locks: app.positionLocks(ctx, id, depositor)}
	return execute(ctx, app, op, func(ctx sdk.Context) (*perptypes.Position, error) {
		return app.PerpKeeper.AddMargin(ctx, depositor, id, amount)
	})
}

func (app *App) ClosePosition(ctx context.Context, caller sdk.AccAddress, id perptypes.PositionID) (*perptypes.Position, sdk.Events, error) {
	op := operation{module: perptypes.ModuleName, name: "close_position", caller: caller, locks: app.positionLocks(ctx, id, caller)}
	return execute(ctx, app, op, func(ctx sdk.Context) (*perptypes.Position, error) {
		return app.PerpKeeper.ClosePosition(ctx, caller, id)
	})
}

// Liquidate is permissionless; the caller collects the liquidation fee.
func (app *App) Liquidate(ctx context.Context, liquidator sdk.AccAddress, id perptypes.PositionID) (*perptypes.Position, sdk.Events, error) {
	op := operation{module: perptypes.ModuleName, name: "liquidate", caller: liquidator, locks: app.positionLocks(ctx, id, liquidator)}
	return execute(ctx, app, op, func(ctx sdk.Context) (*perptypes.Position, error) {
		return app.PerpKeeper.Liquidate(ctx, liquidator, id)
	})
}

func (app *App) positionLocks(ctx context.Context, id perptypes.PositionID, caller sdk.AccAddress) []string {
	locks := []string{accountLock(id.Owner), accountLock(caller)}
	if position, err := app.Position(ctx, id); err == nil {
		locks = append(locks, poolLock(position.PoolID))
	}
	return locks
}

func (app *App) DepositInsurance(ctx context.Context, depositor sdk.AccAddress, poolID uint64, amount math.Int) (sdk.Events, error) {
	op := operation{module: perptypes.ModuleName, name: "deposit_insurance", caller: depositor, locks: []string{poolLock(poolID), accountLock(depositor)}}
	_, events, err := execute(ctx, app, op, func(ctx sdk.Context) (struct{}, error) {
		return struct{}{}, app.PerpKeeper.DepositInsurance(ctx, depositor, poolID, amount)
	})
	return events, err
}

// Admin operations.

func (app *App) UpdateFundingRate(ctx context.Context, authority sdk.AccAddress, poolID uint64, rate int64) (perptypes.FundingState, sdk.Events, error) {
	op := operation{module: perptypes.ModuleName, name: "update_funding_rate", caller: authority, locks: []string{poolLock(poolID)}}
	return execute(ctx, app, op, func(ctx sdk.Context) (perptypes.FundingState, error) {
		return app.PerpKeeper.UpdateFundingRate(ctx, authority, poolID, rate)
	})
}

func (app *App) UpdatePerpParams(ctx context.Context, authority sdk.AccAddress, params perptypes.Params) (sdk.Events, error) {
	op := operation{module: perptypes.ModuleName, name: "update_perp_params", caller: authority, locks: []string{perpParamsLock}}
	_, events, err := execute(ctx, app, op, func(ctx sdk.Context) (struct{}, error) {
		return struct{}{}, app.PerpKeeper.UpdateParams(ctx, authority, params)
	})
	return events, err
}

func (app *App) PausePool(ctx context.Context, authority sdk.AccAddress, poolID uint64) (sdk.Events, error) {
	return app.setPaused(ctx, authority, poolID, true)
}

func (app *App) ResumePool(ctx context.Context, authority sdk.AccAddress, poolID uint64) (sdk.Events, error) {
	return app.setPaused(ctx, authority, poolID, false)
}

func (app *App) setPaused(ctx context.Context, authority sdk.AccAddress, poolID uint64, paused bool) (sdk.Events, error) {
	name := "resume_pool"
	if paused {
		name = "pause_pool"
	}
	op := operation{module: ammtypes.ModuleName, name: name, caller: authority, locks: []string{poolLock(poolID)}}
	_, events, err := execute(ctx, app, op, func(ctx sdk.Context) (struct{}, error) {
		return struct{}{}, app.AMMKeeper.SetPaused(ctx, authority, poolID, paused)
	})
	return events, err
}

func (app *App) UpdateFeeRate(ctx context.Context, authority sdk.AccAddress, poolID uint64, feeRateBps uint32) (sdk.Events, error) {
	op := operation{module: ammtypes.ModuleName, name: "update_fee_rate", caller: authority, locks: []string{poolLock(poolID)}}
	_, events, err := execute(ctx, app, op, func(ctx sdk.Context) (struct{}, error) {
		return struct{}{}, app.AMMKeeper.UpdateFeeRate(ctx, authority, poolID, feeRateBps)
	})
	return events, err
}

// Fund mints coins to a user account. Only the authority may mint, and
// neither LP denoms nor engine-held accounts can be funded this way.
func (app *App) Fund(ctx context.Context, authority, to sdk.AccAddress, coins sdk.Coins) (sdk.Events, error) {
	locks := []string{accountLock(to)}
	for _, coin := range coins {
		locks = append(locks, supplyLock(coin.Denom))
	}

	op := operation{module: ledgertypes.ModuleName, name: "fund", caller: authority, locks: locks}
	_, events, err := execute(ctx, app, op, func(ctx sdk.Context) (struct{}, error) {
		expected := ""
		if !app.authority.Empty() {
			expected = app.authority.String()
		}
		if err := sharedkeeper.ValidateAuthority(expected, authority.String()); err != nil {
			return struct{}{}, err
		}
		if app.LedgerKeeper.IsEngineAccount(ctx, to) {
			return struct{}{}, sharedtypes.ErrUnauthorized.Wrapf("%s is an engine account", to)
		}
		for _, coin := range coins {
			if strings.HasPrefix(coin.Denom, ammtypes.LPDenomPrefix) {
				return struct{}{}, sharedtypes.ErrInvalidCoin.Wrapf("cannot mint pool share %s", coin.Denom)
			}
			if err := app.LedgerKeeper.Mint(ctx, to, coin); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	return events, err
}
