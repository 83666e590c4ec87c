package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"service_marketplace/pkg/config"
	"service_marketplace/pkg/logger"

	"go.uber.org/zap"
)

// DefaultPprofAddr pprof listens on loopback only
const DefaultPprofAddr = "127.0.0.1:6060"

// StartPprof start the pprof server when enabled; production never runs it
func StartPprof(enabled bool, addr string) bool {
	if !enabled || config.IsProduction() {
		logger.Log.Info("pprof is disabled")
		return false
	}
	if addr == "" {
		addr = DefaultPprofAddr
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Warn("pprof server failed", zap.Error(err))
		}
	}()
	return true
}

// 	•	/debug/pprof/goroutine → 顯示所有 Goroutines
// 	•	/debug/pprof/heap → 顯示記憶體分配
// 	•	/debug/pprof/profile → 執行 30 秒 CPU 分析
