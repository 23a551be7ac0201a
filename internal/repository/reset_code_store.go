package repository

import (
	"context"
	"time"
)

// パスワードリセットコードの期限付き保存先（Redis / DB）
type ResetCodeStore interface {
	// emailに対してコードのハッシュを保存（前のコードと失敗回数は破棄）
	Save(ctx context.Context, email string, codeHash string, ttl time.Duration) error
	// 消費せずに現在のハッシュを返す。無い・期限切れはErrNotFound
	Peek(ctx context.Context, email string) (string, error)
	// 照合失敗を1回数える。maxAttemptsに達したらコードを無効化してtrue
	RecordFailure(ctx context.Context, email string, maxAttempts int) (bool, error)
	// 取り出しと同時に削除する。無い・期限切れはErrNotFound
	Consume(ctx context.Context, email string) (string, error)
}
