package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"tasklist/handler"
)

type middleware func(http.HandlerFunc) http.HandlerFunc

// corsMiddleware 处理 CORS 跨域请求
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// 处理预检请求
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// recoverMiddleware 捕获 panic 防止服务崩溃
func recoverMiddleware(logger *log.Logger) middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "method", r.Method, "path", r.URL.Path, "err", err)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next(w, r)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// accessLogMiddleware 记录每个请求的方法、路径、状态码和耗时
func accessLogMiddleware(logger *log.Logger) middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
		}
	}
}

// chain 链接多个中间件
func chain(f http.HandlerFunc, middlewares ...middleware) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		f = middlewares[i](f)
	}
	return f
}

// SetupRoutes 注册任务接口，同一组路由挂在版本化前缀和旧前缀下
func SetupRoutes(h *handler.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	logger := h.Logger()

	withMiddlewares := func(f http.HandlerFunc) http.HandlerFunc {
		return chain(f, accessLogMiddleware(logger), corsMiddleware, recoverMiddleware(logger))
	}

	optionsHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	registerTaskRoutes := func(base string) {
		mux.HandleFunc("GET "+base, withMiddlewares(h.ListTasks))
		mux.HandleFunc("POST "+base, withMiddlewares(h.CreateTask))
		mux.HandleFunc("OPTIONS "+base, withMiddlewares(optionsHandler))

		mux.HandleFunc("GET "+base+"/stats", withMiddlewares(h.GetStats))
		mux.HandleFunc("POST "+base+"/reorder", withMiddlewares(h.ReorderTasks))
		mux.HandleFunc("OPTIONS "+base+"/reorder", withMiddlewares(optionsHandler))

		mux.HandleFunc("PATCH "+base+"/{id}", withMiddlewares(h.ToggleTask))
		mux.HandleFunc("PUT "+base+"/{id}", withMiddlewares(h.UpdateTask))
		mux.HandleFunc("DELETE "+base+"/{id}", withMiddlewares(h.DeleteTask))
		mux.HandleFunc("OPTIONS "+base+"/{id}", withMiddlewares(optionsHandler))
	}

	// Versioned routes with aliases for older clients
	registerTaskRoutes("/api/v1/tasks")
	registerTaskRoutes("/api/tasks")
	registerTaskRoutes("/tasks")

	mux.HandleFunc("/health", chain(h.HealthCheck, recoverMiddleware(logger)))

	return mux
}
