package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// RequestFunc 构造第 i 个请求，设备压测时每个请求可以使用不同的序列号和报文
type RequestFunc func(i int) (*http.Request, error)

// LoadRunner 对运行中的服务发起并发请求
type LoadRunner struct {
	BaseURL     string
	Concurrency int
	Requests    int
	AuthToken   string
	Client      *http.Client
}

// LoadResult 一轮压测的统计
type LoadResult struct {
	Name           string        `json:"name"`
	Concurrency    int           `json:"concurrency"`
	TotalRequests  int           `json:"total_requests"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	P95Time        time.Duration `json:"p95_time"`
	MaxTime        time.Duration `json:"max_time"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	StatusCodes    map[int]int   `json:"status_codes"`
	// UnexpectedBodies 设备接口应答不是预期内容的次数
	UnexpectedBodies int      `json:"unexpected_bodies"`
	Errors           []string `json:"errors"`
}

type sample struct {
	duration time.Duration
	status   int
	body     string
	err      error
}

// NewLoadRunner 创建压测实例
func NewLoadRunner(baseURL string, concurrency, requests int, authToken string) *LoadRunner {
	return &LoadRunner{
		BaseURL:     baseURL,
		Concurrency: concurrency,
		Requests:    requests,
		AuthToken:   authToken,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// DevicePush 模拟 n 台考勤机上传 ATTLOG，每个请求一个序列号和一条打卡
func (b *LoadRunner) DevicePush(serials int, day time.Time) *LoadResult {
	return b.run("ATTLOG push", "OK", func(i int) (*http.Request, error) {
		serial := fmt.Sprintf("BENCH%04d", i%serials)
		at := day.Add(time.Duration(i) * time.Second).Format("2006-01-02 15:04:05")
		body := fmt.Sprintf("%d\t%s\t0\t1\t0\t0\n", 1000+i%500, at)
		req, err := http.NewRequest(http.MethodPost, b.BaseURL+"/iclock/cdata?SN="+serial+"&table=ATTLOG", bytes.NewBufferString(body))
		if err == nil {
			req.Header.Set("Content-Type", "text/plain")
		}
		return req, err
	})
}

// DevicePoll 模拟考勤机轮询命令，没有命令时应答 OK
func (b *LoadRunner) DevicePoll(serials int) *LoadResult {
	return b.run("getrequest poll", "", func(i int) (*http.Request, error) {
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s/iclock/getrequest?SN=BENCH%04d", b.BaseURL, i%serials), nil)
	})
}

// GET 压测带令牌的 JSON 接口
func (b *LoadRunner) GET(path string) *LoadResult {
	return b.run("GET "+path, "", func(int) (*http.Request, error) {
		return b.apiRequest(http.MethodGet, path, nil)
	})
}

// POST 压测带令牌的 JSON 接口
func (b *LoadRunner) POST(path string, payload interface{}) *LoadResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return &LoadResult{Name: "POST " + path, Errors: []string{fmt.Sprintf("JSON编码错误: %v", err)}}
	}
	return b.run("POST "+path, "", func(int) (*http.Request, error) {
		return b.apiRequest(http.MethodPost, path, data)
	})
}

func (b *LoadRunner) apiRequest(method, path string, payload []byte) (*http.Request, error) {
	req, err := http.NewRequest(method, b.BaseURL+"/api"+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.AuthToken)
	}
	return req, nil
}

// run 执行一轮压测，expectBody 非空时校验应答内容
func (b *LoadRunner) run(name, expectBody string, build RequestFunc) *LoadResult {
	samples := make(chan sample, b.Requests)
	var wg sync.WaitGroup
	limiter := make(chan struct{}, b.Concurrency)

	startTime := time.Now()
	for i := 0; i < b.Requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			req, err := build(i)
			if err != nil {
				samples <- sample{err: err}
				return
			}
			start := time.Now()
			resp, err := b.Client.Do(req)
			if err != nil {
				samples <- sample{err: err}
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			samples <- sample{duration: time.Since(start), status: resp.StatusCode, body: string(body)}
		}(i)
	}
	go func() {
		wg.Wait()
		close(samples)
	}()

	result := &LoadResult{Name: name, Concurrency: b.Concurrency, TotalRequests: b.Requests, StatusCodes: map[int]int{}}
	var durations []time.Duration
	var total time.Duration
	for s := range samples {
		if s.err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, s.err.Error())
			continue
		}
		durations = append(durations, s.duration)
		total += s.duration
		result.StatusCodes[s.status]++
		switch {
		case s.status < 200 || s.status >= 300:
			result.FailureCount++
		case expectBody != "" && s.body != expectBody:
			result.FailureCount++
			result.UnexpectedBodies++
		default:
			result.SuccessCount++
		}
	}

	result.TotalTime = time.Since(startTime)
	result.RequestsPerSec = float64(b.Requests) / result.TotalTime.Seconds()
	if n := len(durations); n > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		result.AverageTime = total / time.Duration(n)
		result.P95Time = durations[(n*95)/100]
		result.MaxTime = durations[n-1]
	}
	return result
}

// SuccessRate 成功率百分比
func (r *LoadResult) SuccessRate() float64 {
	if r.TotalRequests == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.TotalRequests) * 100
}

// PrintResult 打印压测结果
func (r *LoadResult) PrintResult() {
	fmt.Printf("压测结果: %s\n", r.Name)
	fmt.Printf("并发数: %d, 总请求数: %d\n", r.Concurrency, r.TotalRequests)
	fmt.Printf("成功: %d, 失败: %d (应答异常 %d)\n", r.SuccessCount, r.FailureCount, r.UnexpectedBodies)
	fmt.Printf("总耗时: %s, 平均: %s, P95: %s, 最大: %s\n", r.TotalTime, r.AverageTime, r.P95Time, r.MaxTime)
	fmt.Printf("每秒请求数: %.2f\n", r.RequestsPerSec)
	for code, count := range r.StatusCodes {
		fmt.Printf("  %d: %d\n", code, count)
	}
	for i, err := range r.Errors {
		if i >= 5 {
			fmt.Printf("  ... 还有 %d 个错误\n", len(r.Errors)-5)
			break
		}
		fmt.Printf("  %s\n", err)
	}
}
