package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// 压测配置，HRM_BENCH_CONFIG 指向 JSON 文件时覆盖默认值
type loadConfig struct {
	BaseURL     string `json:"base_url"`
	AdminUser   string `json:"admin_user"`
	AdminPass   string `json:"admin_pass"`
	Concurrency int    `json:"concurrency"`
	Requests    int    `json:"requests"`
	Devices     int    `json:"devices"`
}

var (
	cfg       loadConfig
	authToken string
)

// TestMain 只有设置 HRM_BENCH_URL 时才对运行中的服务压测
func TestMain(m *testing.M) {
	cfg = loadConfig{
		BaseURL:     os.Getenv("HRM_BENCH_URL"),
		AdminUser:   "admin",
		AdminPass:   os.Getenv("HRM_BENCH_PASSWORD"),
		Concurrency: 10,
		Requests:    200,
		Devices:     20,
	}
	if path := os.Getenv("HRM_BENCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("读取压测配置失败: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			fmt.Printf("解析压测配置失败: %v\n", err)
			os.Exit(1)
		}
	}
	if cfg.BaseURL == "" {
		fmt.Println("未设置 HRM_BENCH_URL，跳过压测")
		os.Exit(0)
	}

	token, err := login()
	if err != nil {
		fmt.Printf("获取认证令牌失败: %v\n", err)
		os.Exit(1)
	}
	authToken = token
	os.Exit(m.Run())
}

func login() (string, error) {
	payload, _ := json.Marshal(map[string]string{"username": cfg.AdminUser, "password": cfg.AdminPass})
	resp, err := http.Post(cfg.BaseURL+"/api/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK || body.Data.Token == "" {
		return "", fmt.Errorf("login status %d", resp.StatusCode)
	}
	return body.Data.Token, nil
}

func runner() *LoadRunner {
	return NewLoadRunner(cfg.BaseURL, cfg.Concurrency, cfg.Requests, authToken)
}

func check(t *testing.T, r *LoadResult) {
	t.Helper()
	r.PrintResult()
	if r.FailureCount > 0 {
		t.Errorf("%s: 成功率 %.2f%%", r.Name, r.SuccessRate())
	}
}

// 设备接口不论数据如何都必须 200 OK
func TestDevicePushLoad(t *testing.T) {
	check(t, runner().DevicePush(cfg.Devices, time.Now().Truncate(time.Hour)))
}

func TestDevicePollLoad(t *testing.T) {
	check(t, runner().DevicePoll(cfg.Devices))
}

func TestDeviceListLoad(t *testing.T) {
	check(t, runner().GET("/devices"))
}

func TestPunchListLoad(t *testing.T) {
	check(t, runner().GET("/punches?pageNum=1&pageSize=50"))
}

func TestAttendanceListLoad(t *testing.T) {
	check(t, runner().GET("/attendance"))
}
