package qr

import (
	"context"
	"sync"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

var _ recordRepo = &recordRepoMock{}

type recordRepoMock struct {
	UpsertFunc    func(ctx context.Context, rec domain.Record) (string, error)
	GetByCodeFunc func(ctx context.Context, code string) (*domain.Record, error)
	ListFunc      func(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error)
	CountFunc     func(ctx context.Context) (int, error)

	calls struct {
		Upsert []struct {
			Ctx context.Context
			Rec domain.Record
		}
		GetByCode []struct {
			Ctx  context.Context
			Code string
		}
		List []struct {
			Ctx    context.Context
			Filter domain.RecordFilter
		}
		Count []struct {
			Ctx context.Context
		}
	}
	lockUpsert    sync.RWMutex
	lockGetByCode sync.RWMutex
	lockList      sync.RWMutex
	lockCount     sync.RWMutex
}

func (mock *recordRepoMock) Upsert(ctx context.Context, rec domain.Record) (string, error) {
	if mock.UpsertFunc == nil {
		panic("recordRepoMock.UpsertFunc: method is nil but recordRepo.Upsert was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Rec domain.Record
	}{Ctx: ctx, Rec: rec}
	mock.lockUpsert.Lock()
	mock.calls.Upsert = append(mock.calls.Upsert, callInfo)
	mock.lockUpsert.Unlock()
	return mock.UpsertFunc(ctx, rec)
}

func (mock *recordRepoMock) UpsertCalls() []struct {
	Ctx context.Context
	Rec domain.Record
} {
	mock.lockUpsert.RLock()
	calls := mock.calls.Upsert
	mock.lockUpsert.RUnlock()
	return calls
}

func (mock *recordRepoMock) GetByCode(ctx context.Context, code string) (*domain.Record, error) {
	if mock.GetByCodeFunc == nil {
		panic("recordRepoMock.GetByCodeFunc: method is nil but recordRepo.GetByCode was just called")
	}
	callInfo := struct {
		Ctx  context.Context
		Code string
	}{Ctx: ctx, Code: code}
	mock.lockGetByCode.Lock()
	mock.calls.GetByCode = append(mock.calls.GetByCode, callInfo)
	mock.lockGetByCode.Unlock()
	return mock.GetByCodeFunc(ctx, code)
}

func (mock *recordRepoMock) GetByCodeCalls() []struct {
	Ctx  context.Context
	Code string
} {
	mock.lockGetByCode.RLock()
	calls := mock.calls.GetByCode
	mock.lockGetByCode.RUnlock()
	return calls
}

func (mock *recordRepoMock) List(ctx context.Context, filter domain.RecordFilter) ([]domain.Record, error) {
	if mock.ListFunc == nil {
		panic("recordRepoMock.ListFunc: method is nil but recordRepo.List was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Filter domain.RecordFilter
	}{Ctx: ctx, Filter: filter}
	mock.lockList.Lock()
	mock.calls.List = append(mock.calls.List, callInfo)
	mock.lockList.Unlock()
	return mock.ListFunc(ctx, filter)
}

func (mock *recordRepoMock) ListCalls() []struct {
	Ctx    context.Context
	Filter domain.RecordFilter
} {
	mock.lockList.RLock()
	calls := mock.calls.List
	mock.lockList.RUnlock()
	return calls
}

func (mock *recordRepoMock) Count(ctx context.Context) (int, error) {
	if mock.CountFunc == nil {
		panic("recordRepoMock.CountFunc: method is nil but recordRepo.Count was just called")
	}
	callInfo := struct {
		Ctx context.Context
	}{Ctx: ctx}
	mock.lockCount.Lock()
	mock.calls.Count = append(mock.calls.Count, callInfo)
	mock.lockCount.Unlock()
	return mock.CountFunc(ctx)
}

func (mock *recordRepoMock) CountCalls() []struct {
	Ctx context.Context
} {
	mock.lockCount.RLock()
	calls := mock.calls.Count
	mock.lockCount.RUnlock()
	return calls
}
