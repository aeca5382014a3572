package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// Store — локальное key-value хранилище поверх встраиваемого SQLite
// значения хранятся как JSON-текст, по одному ключу на каждую независимую
// область данных (корзина, история заказов, адрес доставки)
//
// контракт чтения и записи намеренно мягкий: Load никогда не возвращает
// ошибку, Save — best-effort; источником правды для текущей сессии остаётся
// состояние в памяти сервисного слоя
type Store struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *slog.Logger
}

// Open открывает (или создаёт) файл хранилища и таблицу kv
// ошибка здесь фатальна только на старте приложения
func Open(path string, log *slog.Logger) (*Store, error) {
	const op = "repository.storage.Open"

	if path == "" {
		return nil, fmt.Errorf("%s: storage path is required", op)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: failed to create storage dir: %w", op, err)
		}
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open sqlite db: %w", op, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping sqlite db: %w", op, err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to create kv table: %w", op, err)
	}

	return &Store{
		db: db,
		// SQLite принимает плейсхолдеры в стиле "?", это формат squirrel по умолчанию
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}, nil
}

// Close закрывает файл хранилища
func (s *Store) Close() error {
	return s.db.Close()
}

// Load читает значение по ключу и десериализует его в dest
// Load никогда не возвращает ошибку: при отсутствии ключа, битом JSON или
// недоступном хранилище dest остаётся нетронутым (значение по умолчанию,
// заданное вызывающей стороной), а результат — false
func (s *Store) Load(ctx context.Context, key string, dest any) bool {
	const op = "repository.storage.Load"

	query, args, err := s.sq.Select("value").From("kv").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		s.log.Warn("failed to build kv select", slog.String("op", op), slog.String("error", err.Error()))
		return false
	}

	var raw string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("failed to read key, falling back to default",
				slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		s.log.Warn("dest must be a non-nil pointer",
			slog.String("op", op), slog.String("key", key))
		return false
	}

	// encoding/json продолжает разбор после ошибки типа внутри элемента и
	// оставляет в приёмнике частично декодированное значение, поэтому
	// декодируем во временное значение и копируем в dest только при полном
	// успехе: битые данные эквивалентны отсутствующим
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal([]byte(raw), tmp.Interface()); err != nil {
		s.log.Warn("corrupt value for key, falling back to default",
			slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	rv.Elem().Set(tmp.Elem())

	return true
}

// Save сериализует значение в JSON и записывает его по ключу (upsert)
// запись best-effort: любые ошибки проглатываются и лишь логируются,
// состояние в памяти остаётся корректным до конца сессии
func (s *Store) Save(ctx context.Context, key string, value any) {
	const op = "repository.storage.Save"

	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("failed to marshal value for key",
			slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
		return
	}

	query, args, err := s.sq.Insert("kv").
		Columns("key", "value").
		Values(key, string(raw)).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		s.log.Warn("failed to build kv upsert", slog.String("op", op), slog.String("error", err.Error()))
		return
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Warn("failed to persist key, in-memory state remains authoritative",
			slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
	}
}
