package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/job-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/repository"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var n int

	flag.IntVar(&n, "n", 5, "要插入的随机账户数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if n <= 0 {
		logger.Error("请输入合法的账户数量", slog.Int("n", n))
		os.Exit(1)
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	inserted := 0
	for range n {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Seed.EmailDomain)
		if err != nil {
			logger.Error("无法生成随机账户", slog.String("error", err.Error()))
			continue
		}

		if err := repo.CreateUser(context.Background(), user); err != nil {
			switch {
			case errors.Is(err, domain.ErrDuplicateEmail):
				// 随机生成的邮箱偶尔会重复，跳过即可
				logger.Warn("邮箱重复，跳过", slog.String("email", user.Email))
			default:
				logger.Error("无法插入账户", slog.String("error", err.Error()))
			}
			continue
		}

		inserted++
	}

	users, err := repo.GetAllUsers(context.Background())
	if err != nil {
		logger.Error("无法统计账户数量", slog.String("error", err.Error()))
		return
	}

	logger.Info("插入账户成功", slog.Int("count", inserted), slog.Int("total", len(users)))
}
