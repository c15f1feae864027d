package mocks

import (
	"context"

	"github.com/blnkfinance/recon/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) LoadBank(ctx context.Context, query model.BankQuery) (*model.BankData, error) {
	args := m.Called(ctx, query)
	data, _ := args.Get(0).(*model.BankData)
	return data, args.Error(1)
}

func (m *MockDataSource) LoadAR(ctx context.Context) (*model.ARData, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).(*model.ARData)
	return data, args.Error(1)
}

func (m *MockDataSource) LoadAP(ctx context.Context) (*model.APData, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).(*model.APData)
	return data, args.Error(1)
}

func (m *MockDataSource) LoadFixedAssets(ctx context.Context) (*model.FixedAssetsData, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).(*model.FixedAssetsData)
	return data, args.Error(1)
}

func (m *MockDataSource) LoadInventory(ctx context.Context) (*model.InventoryData, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).(*model.InventoryData)
	return data, args.Error(1)
}

func (m *MockDataSource) LoadPrepaid(ctx context.Context) (*model.ScheduleData, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).(*model.ScheduleData)
	return data, args.Error(1)
}

func (m *MockDataSource) LoadAccrued(ctx context.Context) (*model.ScheduleData, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).(*model.ScheduleData)
	return data, args.Error(1)
}

func (m *MockDataSource) LoadCashEquivalents(ctx context.Context) (*model.CashEquivalentsData, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).(*model.CashEquivalentsData)
	return data, args.Error(1)
}
