package usecase

import (
	"context"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

// RealClock は UTC の現在時刻を返す Clock です。
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

// NoopTransactionManager はトランザクションを張らずに fn を実行します。
type NoopTransactionManager struct{}

func (NoopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (NoopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Defaults は nil の依存を既定値に置き換えます。
func Defaults(clock Clock, tx TransactionManager) (Clock, TransactionManager) {
	if clock == nil {
		clock = RealClock{}
	}
	if tx == nil {
		tx = NoopTransactionManager{}
	}
	return clock, tx
}
