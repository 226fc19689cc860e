// Package migration はSQLiteデータベースのマイグレーションを管理する。
// fs.FS上のSQLファイルを読み込み、schema_migrationsテーブルで適用状態を追跡する。
package migration

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/purgerelay/pkg/logger"
)

// upSuffix は適用用マイグレーションファイルの拡張子。
const upSuffix = ".up.sql"

// step は1つのマイグレーションファイルを表す。
type step struct {
	// version はファイル名先頭の連番。
	version int
	// name はバージョン以降の説明部分。
	name string
	// file はfs.FS上のパス。
	file string
}

// Run はdir配下の "000001_description.up.sql" 形式のファイルをバージョン順に適用する。
// 適用済みのバージョンはスキップし、今回適用したバージョンの一覧を返す。
// 途中で失敗した場合は、それまでに適用したバージョンとエラーを返す。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, log logger.Logger) ([]int, error) {
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	steps, err := discover(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの収集に失敗: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	var done []int
	for _, s := range steps {
		if _, ok := applied[s.version]; ok {
			continue
		}
		if err := apply(ctx, db, fsys, s); err != nil {
			return done, fmt.Errorf("マイグレーション %06d (%s) の適用に失敗: %w", s.version, s.name, err)
		}
		log.Info("マイグレーションを適用しました", "version", s.version, "name", s.name)
		done = append(done, s.version)
	}
	return done, nil
}

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
)`

// appliedVersions は適用済みのバージョンを集合で返す。
func appliedVersions(ctx context.Context, db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	versions := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions[v] = struct{}{}
	}
	return versions, rows.Err()
}

// discover はdir直下のup.sqlファイルをバージョン順に並べて返す。
// 連番で始まらないファイルは無視し、連番の重複はエラーにする。
func discover(fsys fs.FS, dir string) ([]step, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*"+upSuffix))
	if err != nil {
		return nil, err
	}
	if _, err := fs.Stat(fsys, dir); err != nil {
		return nil, err
	}

	steps := make([]step, 0, len(files))
	for _, file := range files {
		s, ok := parseFileName(file)
		if !ok {
			continue
		}
		steps = append(steps, s)
	}

	slices.SortFunc(steps, func(a, b step) int {
		return cmp.Compare(a.version, b.version)
	})
	for i := 1; i < len(steps); i++ {
		if steps[i].version == steps[i-1].version {
			return nil, fmt.Errorf("バージョン %06d が重複しています: %s, %s",
				steps[i].version, path.Base(steps[i-1].file), path.Base(steps[i].file))
		}
	}
	return steps, nil
}

// parseFileName は "000001_description.up.sql" からバージョンと説明を取り出す。
func parseFileName(file string) (step, bool) {
	base := strings.TrimSuffix(path.Base(file), upSuffix)
	prefix, name, ok := strings.Cut(base, "_")
	if !ok {
		return step{}, false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return step{}, false
	}
	return step{version: version, name: name, file: file}, true
}

// apply は1つのマイグレーションとバージョンの記録を同一トランザクションで実行する。
func apply(ctx context.Context, db *sql.DB, fsys fs.FS, s step) error {
	content, err := fs.ReadFile(fsys, s.file)
	if err != nil {
		return fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", s.version); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
