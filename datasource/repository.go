package datasource

import (
	"context"

	"github.com/blnkfinance/recon/model"
)

// IDataSource loads the tables every reconciliation domain works on.
type IDataSource interface {
	LoadBank(ctx context.Context, query model.BankQuery) (*model.BankData, error)
	LoadAR(ctx context.Context) (*model.ARData, error)
	LoadAP(ctx context.Context) (*model.APData, error)
	LoadFixedAssets(ctx context.Context) (*model.FixedAssetsData, error)
	LoadInventory(ctx context.Context) (*model.InventoryData, error)
	LoadPrepaid(ctx context.Context) (*model.ScheduleData, error)
	LoadAccrued(ctx context.Context) (*model.ScheduleData, error)
	LoadCashEquivalents(ctx context.Context) (*model.CashEquivalentsData, error)
}
