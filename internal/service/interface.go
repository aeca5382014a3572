package service

import (
	"context"
)

// KVStore определяет контракт локального key-value хранилища
// Load никогда не возвращает ошибку: при любой проблеме dest остаётся
// значением по умолчанию, заданным вызывающей стороной
// Save — best-effort: ошибки записи проглатываются внутри хранилища
type KVStore interface {
	Load(ctx context.Context, key string, dest any) bool
	Save(ctx context.Context, key string, value any)
}
