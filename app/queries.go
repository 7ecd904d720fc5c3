package app

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ammtypes "github.com/solrush/rush/x/amm/types"
	dcatypes "github.com/solrush/rush/x/dca/types"
	ledgertypes "github.com/solrush/rush/x/ledger/types"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
	perptypes "github.com/solrush/rush/x/perp/types"
	sharedtypes "github.com/solrush/rush/x/shared/types"
)

// Queries read committed state only. None of them take operation locks.

func (app *App) Balance(ctx context.Context, addr sdk.AccAddress, denom string) (sdk.Coin, error) {
	return query(ctx, app, func(ctx sdk.Context) (sdk.Coin, error) {
		return app.LedgerKeeper.GetBalance(ctx, addr, denom), nil
	})
}

func (app *App) Balances(ctx context.Context, addr sdk.AccAddress) (sdk.Coins, error) {
	return query(ctx, app, func(ctx sdk.Context) (sdk.Coins, error) {
		return app.LedgerKeeper.GetAllBalances(ctx, addr), nil
	})
}

func (app *App) Supply(ctx context.Context, denom string) (math.Int, error) {
	return query(ctx, app, func(ctx sdk.Context) (math.Int, error) {
		return app.LedgerKeeper.GetSupply(ctx, denom), nil
	})
}

// AccountInfo explains an engine-held account handle.
func (app *App) AccountInfo(ctx context.Context, handle sdk.AccAddress) (ledgertypes.AccountInfo, error) {
	return query(ctx, app, func(ctx sdk.Context) (ledgertypes.AccountInfo, error) {
		info, ok := app.LedgerKeeper.GetAccountInfo(ctx, handle)
		if !ok {
			return info, sharedtypes.ErrInvalidAccountHandle.Wrapf("%s is not an engine account", handle)
		}
		return info, nil
	})
}

func (app *App) Pool(ctx context.Context, poolID uint64) (*ammtypes.Pool, error) {
	return query(ctx, app, func(ctx sdk.Context) (*ammtypes.Pool, error) {
		return app.AMMKeeper.GetPool(ctx, poolID)
	})
}

func (app *App) PoolByPair(ctx context.Context, pair ammtypes.TradingPair) (*ammtypes.Pool, error) {
	return query(ctx, app, func(ctx sdk.Context) (*ammtypes.Pool, error) {
		return app.AMMKeeper.GetPoolByPair(ctx, pair)
	})
}

func (app *App) Pools(ctx context.Context) ([]ammtypes.Pool, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]ammtypes.Pool, error) {
		return app.AMMKeeper.GetAllPools(ctx)
	})
}

// SpotPrice returns the pool's quoted price, quote per base scaled by 1e9.
func (app *App) SpotPrice(ctx context.Context, poolID uint64) (math.Int, error) {
	return query(ctx, app, func(ctx sdk.Context) (math.Int, error) {
		return app.AMMKeeper.SpotPrice(ctx, poolID)
	})
}

func (app *App) QuoteSwap(ctx context.Context, poolID uint64, side sharedtypes.Side, amountIn math.Int) (*ammtypes.SwapQuote, error) {
	return query(ctx, app, func(ctx sdk.Context) (*ammtypes.SwapQuote, error) {
		return app.AMMKeeper.QuoteSwap(ctx, poolID, side, amountIn)
	})
}

func (app *App) FeeInfo(ctx context.Context, poolID uint64) (*ammtypes.FeeInfo, error) {
	return query(ctx, app, func(ctx sdk.Context) (*ammtypes.FeeInfo, error) {
		return app.AMMKeeper.GetFeeInfo(ctx, poolID)
	})
}

func (app *App) LPBalance(ctx context.Context, poolID uint64, provider sdk.AccAddress) (math.Int, error) {
	return query(ctx, app, func(ctx sdk.Context) (math.Int, error) {
		return app.AMMKeeper.GetLPBalance(ctx, poolID, provider), nil
	})
}

func (app *App) LimitOrder(ctx context.Context, id orderbooktypes.OrderID) (*orderbooktypes.LimitOrder, error) {
	return query(ctx, app, func(ctx sdk.Context) (*orderbooktypes.LimitOrder, error) {
		return app.OrderBookKeeper.GetLimitOrder(ctx, id)
	})
}

func (app *App) LimitOrdersByOwner(ctx context.Context, owner sdk.AccAddress) ([]*orderbooktypes.LimitOrder, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*orderbooktypes.LimitOrder, error) {
		return app.OrderBookKeeper.GetOrdersByOwner(ctx, owner)
	})
}

func (app *App) OpenLimitOrders(ctx context.Context, poolID uint64) ([]*orderbooktypes.LimitOrder, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*orderbooktypes.LimitOrder, error) {
		return app.OrderBookKeeper.GetOpenOrders(ctx, poolID)
	})
}

// AllOpenLimitOrders returns the open orders of every book.
func (app *App) AllOpenLimitOrders(ctx context.Context) ([]*orderbooktypes.LimitOrder, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*orderbooktypes.LimitOrder, error) {
		var orders []*orderbooktypes.LimitOrder
		err := app.OrderBookKeeper.IterateAllOpenOrders(ctx, func(order *orderbooktypes.LimitOrder) bool {
			orders = append(orders, order)
			return false
		})
		return orders, err
	})
}

func (app *App) DCAOrder(ctx context.Context, id dcatypes.OrderID) (*dcatypes.DCAOrder, error) {
	return query(ctx, app, func(ctx sdk.Context) (*dcatypes.DCAOrder, error) {
		return app.DCAKeeper.GetDCAOrder(ctx, id)
	})
}

func (app *App) DCAOrdersByOwner(ctx context.Context, owner sdk.AccAddress) ([]*dcatypes.DCAOrder, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*dcatypes.DCAOrder, error) {
		return app.DCAKeeper.GetDCAOrdersByOwner(ctx, owner)
	})
}

// DueDCAOrders returns the orders whose next cycle is due at the current
// clock time.
func (app *App) DueDCAOrders(ctx context.Context) ([]*dcatypes.DCAOrder, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*dcatypes.DCAOrder, error) {
		return app.DCAKeeper.GetDueDCAOrders(ctx, ctx.BlockTime().Unix())
	})
}

func (app *App) Position(ctx context.Context, id perptypes.PositionID) (*perptypes.Position, error) {
	return query(ctx, app, func(ctx sdk.Context) (*perptypes.Position, error) {
		return app.PerpKeeper.GetPosition(ctx, id)
	})
}

func (app *App) PositionsByOwner(ctx context.Context, owner sdk.AccAddress) ([]*perptypes.Position, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*perptypes.Position, error) {
		return app.PerpKeeper.GetPositionsByOwner(ctx, owner)
	})
}

func (app *App) OpenPositions(ctx context.Context, poolID uint64) ([]*perptypes.Position, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*perptypes.Position, error) {
		return app.PerpKeeper.GetOpenPositions(ctx, poolID)
	})
}

func (app *App) PositionHealth(ctx context.Context, id perptypes.PositionID) (*perptypes.PositionHealth, error) {
	return query(ctx, app, func(ctx sdk.Context) (*perptypes.PositionHealth, error) {
		return app.PerpKeeper.GetPositionHealth(ctx, id)
	})
}

func (app *App) LiquidatablePositions(ctx context.Context, poolID uint64) ([]*perptypes.Position, error) {
	return query(ctx, app, func(ctx sdk.Context) ([]*perptypes.Position, error) {
		return app.PerpKeeper.GetLiquidatablePositions(ctx, poolID)
	})
}

func (app *App) PerpParams(ctx context.Context) (perptypes.Params, error) {
	return query(ctx, app, func(ctx sdk.Context) (perptypes.Params, error) {
		return app.PerpKeeper.GetParams(ctx), nil
	})
}

func (app *App) FundingState(ctx context.Context, poolID uint64) (perptypes.FundingState, error) {
	return query(ctx, app, func(ctx sdk.Context) (perptypes.FundingState, error) {
		return app.PerpKeeper.GetFundingState(ctx, poolID), nil
	})
}

func (app *App) InsuranceBalance(ctx context.Context, poolID uint64) (sdk.Coin, error) {
	return query(ctx, app, func(ctx sdk.Context) (sdk.Coin, error) {
		return app.PerpKeeper.InsuranceBalance(ctx, poolID)
	})
}
