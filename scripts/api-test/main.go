// api-test 对运行中的服务做一轮冒烟测试：原始 HTTP 调用 + 通过 client 包走一遍引擎远程模式
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"tasklist/client"
	"tasklist/engine"
	"tasklist/model"
)

func main() {
	baseURL := flag.String("url", "http://localhost:7789", "server address")
	wait := flag.Duration("wait", 0, "wait before starting, e.g. 2s")
	flag.Parse()

	// 等待服务器启动
	time.Sleep(*wait)

	fmt.Println("=== Task List API 测试 ===")
	failed := 0
	check := func(ok bool) {
		if !ok {
			failed++
		}
	}

	fmt.Println("\n1. 健康检查 /health")
	check(testEndpoint(*baseURL, "GET", "/health", nil, http.StatusOK))

	fmt.Println("\n2. 获取任务列表")
	check(testEndpoint(*baseURL, "GET", "/api/v1/tasks", nil, http.StatusOK))

	fmt.Println("\n3. 创建任务")
	body, _ := json.Marshal(map[string]string{
		"title":    fmt.Sprintf("Smoke test %d", time.Now().Unix()),
		"dueDate":  time.Now().Format("2006-01-02"),
		"priority": "high",
	})
	check(testEndpoint(*baseURL, "POST", "/api/v1/tasks", body, http.StatusCreated))

	fmt.Println("\n4. 标题过短应被拒绝")
	body, _ = json.Marshal(map[string]string{"title": "ab"})
	check(testEndpoint(*baseURL, "POST", "/api/v1/tasks", body, http.StatusBadRequest))

	fmt.Println("\n5. 统计")
	check(testEndpoint(*baseURL, "GET", "/api/v1/tasks/stats", nil, http.StatusOK))

	fmt.Println("\n6. 远程模式引擎")
	check(testRemoteEngine(*baseURL + "/api/v1"))

	fmt.Println("\n=== 测试完成 ===")
	if failed > 0 {
		fmt.Printf("❌ %d 项失败\n", failed)
		os.Exit(1)
	}
}

func testEndpoint(baseURL, method, endpoint string, data []byte, want int) bool {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("❌ 创建请求失败: %v\n", err)
		return false
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := &http.Client{Timeout: 5 * time.Second}
	resp, err := hc.Do(req)
	if err != nil {
		fmt.Printf("❌ 请求失败: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Printf("❌ %s %s - Status: %d, want %d\n", method, endpoint, resp.StatusCode, want)
		fmt.Printf("Response: %s\n", respBody)
		return false
	}
	fmt.Printf("✅ %s %s - Status: %d\n", method, endpoint, resp.StatusCode)
	fmt.Printf("Response: %s\n", respBody)
	return true
}

// testRemoteEngine 新建、切换、删除一个任务，确认服务端状态与引擎一致
func testRemoteEngine(apiURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c, err := client.New(apiURL)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return false
	}
	cfg := engine.DefaultConfig()
	cfg.Mode = engine.ModeRemote
	e, err := engine.New(cfg, engine.WithRemoteStore(c))
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return false
	}
	if err := e.Open(ctx); err != nil {
		fmt.Printf("❌ 加载失败: %v\n", err)
		return false
	}

	ev, err := e.Add(ctx, engine.NewTaskInput{
		Title:    fmt.Sprintf("Engine smoke %d", time.Now().UnixNano()),
		Priority: model.PriorityLow,
	})
	if err != nil {
		fmt.Printf("❌ 创建失败: %v\n", err)
		return false
	}
	if _, err := e.Toggle(ctx, ev.TaskID); err != nil {
		fmt.Printf("❌ 切换失败: %v\n", err)
		return false
	}
	if _, err := e.Delete(ctx, ev.TaskID); err != nil {
		fmt.Printf("❌ 删除失败: %v\n", err)
		return false
	}

	st := e.Stats()
	fmt.Printf("✅ 远程引擎往返成功，当前 %d 个任务（完成 %d%%）\n", st.Total, st.Percent)
	return true
}
