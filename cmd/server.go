/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/streamwork/hierarchy-gin/internal/api"
	"github.com/streamwork/hierarchy-gin/internal/config"
	"github.com/streamwork/hierarchy-gin/internal/container"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Hierarchy Gin API server.
The server will listen on the configured host and port,
and provide REST API interfaces for relation management and access checks
over the user and stream hierarchies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化日志
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		// 配置文件存在时监听变更,热更新日志级别
		if configPath != "" {
			watcher := config.NewWatcher(cfg, configPath)
			watcher.OnChange(func(next *config.Config) {
				if level, err := logrus.ParseLevel(next.Log.Level); err == nil {
					logger.SetLevel(level)
				}
			})
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("config watcher disabled")
			} else {
				defer watcher.Stop()
			}
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 4. 设置路由
		router := setupRouter(ctr, cfg)

		// 5. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		// 启动服务器（在 goroutine 中）
		go func() {
			log.Printf("Server starting on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		log.Println("Server exited")
		return nil
	},
}

// setupRouter 组装控制器并设置路由
func setupRouter(ctr *container.Container, cfg *config.Config) *gin.Engine {
	return api.SetupRoutes(&api.RouterConfig{
		DB:             ctr.DB(),
		Hub:            ctr.Hub(),
		Validator:      ctr.TokenValidator(),
		TrustHeaders:   cfg.Auth.TrustHeaders,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AccessRPS:      cfg.Engine.AccessCheckRPS,
		AccessBurst:    cfg.Engine.AccessCheckBurst,
		Users:          buildHandlers(ctr.Users()),
		Streams:        buildHandlers(ctr.Streams()),
	})
}

// buildHandlers 为一个领域组装控制器
func buildHandlers(set *container.DomainSet) api.DomainHandlers {
	return api.DomainHandlers{
		Relations: api.NewRelationController(set.Relations),
		Access:    api.NewAccessController(set.Access),
		Hierarchy: api.NewHierarchyController(set.Hierarchy),
		Audit:     api.NewAuditController(set.Audit),
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}

// LoadConfig 加载配置
func LoadConfig(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}
