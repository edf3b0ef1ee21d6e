package sla

import "context"

// Repository は SLA 設定と評価対象の参照を行うインターフェースです。
type Repository interface {
	ListConfigs(ctx context.Context, companyID string) ([]*Config, error)
	// ReplaceConfigs は会社の設定を configs で置き換えます。呼び出し側のトランザクション内で実行されます。
	ReplaceConfigs(ctx context.Context, companyID string, configs []*Config) ([]*Config, error)
	ListOpenEntries(ctx context.Context, companyID string) ([]*OpenEntry, error)
}
