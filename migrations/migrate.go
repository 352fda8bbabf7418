package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedMigrations embed.FS

func Migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("设置迁移方言失败: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	return nil
}
