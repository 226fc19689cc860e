package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/nao1215/purgerelay/pkg/logger"
	_ "modernc.org/sqlite"
)

// openTestDB はテスト用のインメモリSQLiteを開く。
// :memory: は接続ごとに別DBになるため接続数を1に制限する。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリSQLiteの接続に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/000002_add_index.up.sql":      {Data: []byte("CREATE INDEX idx_items_name ON items(name);")},
		"migrations/000001_create_items.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT);")},
		"migrations/000001_create_items.down.sql": {Data: []byte("DROP TABLE items;")},
		"migrations/README.md":                    {Data: []byte("ignored")},
	}
}

// TestRun はマイグレーションの適用を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("バージョン順に適用されること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		applied, err := Run(context.Background(), db, testFS(), "migrations", logger.NewNop())
		if err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}
		if len(applied) != 2 || applied[0] != 1 || applied[1] != 2 {
			t.Errorf("applied = %v, want [1 2]", applied)
		}

		if _, err := db.Exec("INSERT INTO items (name) VALUES ('a')"); err != nil {
			t.Errorf("テーブルが作成されていない: %v", err)
		}
	})

	t.Run("2回目の実行では何も適用されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		ctx := context.Background()
		if _, err := Run(ctx, db, testFS(), "migrations", logger.NewNop()); err != nil {
			t.Fatalf("1回目のRun()でエラーが発生: %v", err)
		}
		applied, err := Run(ctx, db, testFS(), "migrations", logger.NewNop())
		if err != nil {
			t.Fatalf("2回目のRun()でエラーが発生: %v", err)
		}
		if len(applied) != 0 {
			t.Errorf("applied = %v, want []", applied)
		}
	})

	t.Run("不正なSQLでエラーが返りバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/000001_broken.up.sql": {Data: []byte("CREATE TABLE")},
		}
		if _, err := Run(context.Background(), db, fsys, "m", logger.NewNop()); err == nil {
			t.Fatal("Run()がエラーを返すべきだが、nilが返った")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("件数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("schema_migrationsの件数 = %d, want 0", count)
		}
	})

	t.Run("重複したバージョンでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql": {Data: []byte("SELECT 1;")},
		}
		if _, err := Run(context.Background(), db, fsys, "m", logger.NewNop()); err == nil {
			t.Fatal("Run()がエラーを返すべきだが、nilが返った")
		}
	})
}

func TestParseFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file   string
		want   step
		wantOK bool
	}{
		{file: "m/000003_create_purge_events.up.sql", want: step{version: 3, name: "create_purge_events", file: "m/000003_create_purge_events.up.sql"}, wantOK: true},
		{file: "m/create_items.up.sql"},
		{file: "m/abc_items.up.sql"},
		{file: "m/000000_zero.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()

			got, ok := parseFileName(tt.file)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRun_MissingDir(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	if _, err := Run(context.Background(), db, fstest.MapFS{}, "missing", logger.NewNop()); err == nil {
		t.Fatal("存在しないディレクトリではエラーを返すべき")
	}
}
