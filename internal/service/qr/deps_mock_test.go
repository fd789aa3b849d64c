package qr

import (
	"context"
	"sync"

	"github.com/heartmarshall/qrfactory/internal/domain"
)

var (
	_ scanLogRepo  = &scanLogRepoMock{}
	_ scanRecorder = &scanRecorderMock{}
	_ txManager    = &txManagerMock{}
)

type scanLogRepoMock struct {
	RecentFunc func(ctx context.Context, filter domain.ScanLogFilter) ([]domain.ScanLogEntry, error)

	calls struct {
		Recent []struct {
			Ctx    context.Context
			Filter domain.ScanLogFilter
		}
	}
	lockRecent sync.RWMutex
}

func (mock *scanLogRepoMock) Recent(ctx context.Context, filter domain.ScanLogFilter) ([]domain.ScanLogEntry, error) {
	if mock.RecentFunc == nil {
		panic("scanLogRepoMock.RecentFunc: method is nil but scanLogRepo.Recent was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Filter domain.ScanLogFilter
	}{Ctx: ctx, Filter: filter}
	mock.lockRecent.Lock()
	mock.calls.Recent = append(mock.calls.Recent, callInfo)
	mock.lockRecent.Unlock()
	return mock.RecentFunc(ctx, filter)
}

func (mock *scanLogRepoMock) RecentCalls() []struct {
	Ctx    context.Context
	Filter domain.ScanLogFilter
} {
	mock.lockRecent.RLock()
	calls := mock.calls.Recent
	mock.lockRecent.RUnlock()
	return calls
}

type scanRecorderMock struct {
	RecordFunc func(entry domain.ScanLogEntry)

	calls struct {
		Record []struct {
			Entry domain.ScanLogEntry
		}
	}
	lockRecord sync.RWMutex
}

func (mock *scanRecorderMock) Record(entry domain.ScanLogEntry) {
	callInfo := struct {
		Entry domain.ScanLogEntry
	}{Entry: entry}
	mock.lockRecord.Lock()
	mock.calls.Record = append(mock.calls.Record, callInfo)
	mock.lockRecord.Unlock()
	if mock.RecordFunc != nil {
		mock.RecordFunc(entry)
	}
}

func (mock *scanRecorderMock) RecordCalls() []struct {
	Entry domain.ScanLogEntry
} {
	mock.lockRecord.RLock()
	calls := mock.calls.Record
	mock.lockRecord.RUnlock()
	return calls
}

type txManagerMock struct {
	RunInTxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

	calls struct {
		RunInTx []struct {
			Ctx context.Context
			Fn  func(ctx context.Context) error
		}
	}
	lockRunInTx sync.RWMutex
}

func (mock *txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mock.RunInTxFunc == nil {
		panic("txManagerMock.RunInTxFunc: method is nil but txManager.RunInTx was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Fn  func(ctx context.Context) error
	}{Ctx: ctx, Fn: fn}
	mock.lockRunInTx.Lock()
	mock.calls.RunInTx = append(mock.calls.RunInTx, callInfo)
	mock.lockRunInTx.Unlock()
	return mock.RunInTxFunc(ctx, fn)
}

func (mock *txManagerMock) RunInTxCalls() []struct {
	Ctx context.Context
	Fn  func(ctx context.Context) error
} {
	mock.lockRunInTx.RLock()
	calls := mock.calls.RunInTx
	mock.lockRunInTx.RUnlock()
	return calls
}
