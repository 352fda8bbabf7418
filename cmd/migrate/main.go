package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/job-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/job-portal/backend/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		os.Exit(1)
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Error("数据库迁移失败", "error", err)
		os.Exit(1)
	}

	logger.Info("数据库迁移完成")
}
