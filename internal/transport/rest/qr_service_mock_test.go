package rest

import (
	"context"
	"sync"

	"github.com/heartmarshall/qrfactory/internal/domain"
	"github.com/heartmarshall/qrfactory/internal/service/qr"
)

var (
	_ qrService       = &qrServiceMock{}
	_ workbookService = &qrServiceMock{}
)

type qrServiceMock struct {
	UpsertFunc  func(ctx context.Context, input qr.UpsertInput) (*qr.UpsertResult, error)
	ImportFunc  func(ctx context.Context, input qr.ImportInput) (*qr.ImportResult, error)
	ScanFunc    func(ctx context.Context, input qr.ScanInput) (*domain.Record, error)
	GetFunc     func(ctx context.Context, code string) (*domain.Record, error)
	ListFunc    func(ctx context.Context, input qr.ListInput) ([]domain.Record, error)
	HistoryFunc func(ctx context.Context, input qr.HistoryInput) ([]domain.ScanLogEntry, error)

	calls struct {
		Upsert  []qr.UpsertInput
		Import  []qr.ImportInput
		Scan    []qr.ScanInput
		Get     []string
		List    []qr.ListInput
		History []qr.HistoryInput
	}
	lock sync.RWMutex
}

func (mock *qrServiceMock) Upsert(ctx context.Context, input qr.UpsertInput) (*qr.UpsertResult, error) {
	if mock.UpsertFunc == nil {
		panic("qrServiceMock.UpsertFunc: method is nil but qrService.Upsert was just called")
	}
	mock.lock.Lock()
	mock.calls.Upsert = append(mock.calls.Upsert, input)
	mock.lock.Unlock()
	return mock.UpsertFunc(ctx, input)
}

func (mock *qrServiceMock) UpsertCalls() []qr.UpsertInput {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.Upsert
}

func (mock *qrServiceMock) Import(ctx context.Context, input qr.ImportInput) (*qr.ImportResult, error) {
	if mock.ImportFunc == nil {
		panic("qrServiceMock.ImportFunc: method is nil but qrService.Import was just called")
	}
	mock.lock.Lock()
	mock.calls.Import = append(mock.calls.Import, input)
	mock.lock.Unlock()
	return mock.ImportFunc(ctx, input)
}

func (mock *qrServiceMock) ImportCalls() []qr.ImportInput {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.Import
}

func (mock *qrServiceMock) Scan(ctx context.Context, input qr.ScanInput) (*domain.Record, error) {
	if mock.ScanFunc == nil {
		panic("qrServiceMock.ScanFunc: method is nil but qrService.Scan was just called")
	}
	mock.lock.Lock()
	mock.calls.Scan = append(mock.calls.Scan, input)
	mock.lock.Unlock()
	return mock.ScanFunc(ctx, input)
}

func (mock *qrServiceMock) Get(ctx context.Context, code string) (*domain.Record, error) {
	if mock.GetFunc == nil {
		panic("qrServiceMock.GetFunc: method is nil but qrService.Get was just called")
	}
	mock.lock.Lock()
	mock.calls.Get = append(mock.calls.Get, code)
	mock.lock.Unlock()
	return mock.GetFunc(ctx, code)
}

func (mock *qrServiceMock) GetCalls() []string {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.Get
}

func (mock *qrServiceMock) ScanCalls() []qr.ScanInput {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.Scan
}

func (mock *qrServiceMock) List(ctx context.Context, input qr.ListInput) ([]domain.Record, error) {
	if mock.ListFunc == nil {
		panic("qrServiceMock.ListFunc: method is nil but qrService.List was just called")
	}
	mock.lock.Lock()
	mock.calls.List = append(mock.calls.List, input)
	mock.lock.Unlock()
	return mock.ListFunc(ctx, input)
}

func (mock *qrServiceMock) ListCalls() []qr.ListInput {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.List
}

func (mock *qrServiceMock) History(ctx context.Context, input qr.HistoryInput) ([]domain.ScanLogEntry, error) {
	if mock.HistoryFunc == nil {
		panic("qrServiceMock.HistoryFunc: method is nil but qrService.History was just called")
	}
	mock.lock.Lock()
	mock.calls.History = append(mock.calls.History, input)
	mock.lock.Unlock()
	return mock.HistoryFunc(ctx, input)
}

func (mock *qrServiceMock) HistoryCalls() []qr.HistoryInput {
	mock.lock.RLock()
	defer mock.lock.RUnlock()
	return mock.calls.History
}
