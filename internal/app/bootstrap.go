package app

import (
	"errors"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/provider"
	"github.com/modamart/internal/router"
	"github.com/modamart/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if !isKnownMode(mode) {
		return nil, nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化 Worker 服务：队列消费者（可选）+ 兜底扫描
	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				container.Close()
				return nil, nil, err
			}
			services = append(services, workerService)
		}
		services = append(services, worker.NewSweeper(cfg.Checkout, container.CheckoutService, container.PaymentService))
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer container.Close()

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "services", runner.Names())
	return RunWithOptions(runner, opts)
}
