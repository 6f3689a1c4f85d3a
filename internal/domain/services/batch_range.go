package services

import (
	"fmt"
	"time"
)

// GenerateRequest 批处理范围。Days 非空时忽略 From/To：
// 0 为今天，N 为最近 N 天，负数为全部数据
type GenerateRequest struct {
	Scope string    `json:"scope" form:"scope"`
	From  time.Time `json:"from" form:"from" time_format:"2006-01-02"`
	To    time.Time `json:"to" form:"to" time_format:"2006-01-02"`
	Days  *int      `json:"days,omitempty" form:"days"`
}

// BatchResult 批处理计数
type BatchResult struct {
	RunID      string    `json:"run_id"`
	Scope      string    `json:"scope"`
	ConfigName string    `json:"config_name"`
	From       time.Time `json:"start_date"`
	To         time.Time `json:"end_date"`
	Generated  int       `json:"generated"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed,omitempty"`
	Errors     int       `json:"errors"`
	Details    []string  `json:"details,omitempty"`
}

// Message 人类可读的汇总
func (r BatchResult) Message() string {
	msg := fmt.Sprintf("Generated %d, Updated %d", r.Generated, r.Updated)
	if r.Removed > 0 {
		msg += fmt.Sprintf(", Removed %d", r.Removed)
	}
	if r.Errors > 0 {
		msg += fmt.Sprintf(", Errors %d", r.Errors)
	}
	return msg
}

func (r *BatchResult) fail(detail string) {
	r.Errors++
	if len(r.Details) < 50 {
		r.Details = append(r.Details, detail)
	}
}

// localDay 返回 t 在 loc 中的当日零点
func localDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// resolveRange 计算批处理的日期区间 [from, to]，earliest 仅在 Days 为负时调用
func resolveRange(req GenerateRequest, now time.Time, loc *time.Location, earliest func() (*time.Time, error)) (time.Time, time.Time, error) {
	today := localDay(now, loc)
	if req.Days != nil {
		days := *req.Days
		switch {
		case days < 0:
			t, err := earliest()
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			if t == nil {
				return today.AddDate(0, 0, -30), today, nil
			}
			return localDay(*t, loc), today, nil
		case days <= 1:
			return today, today, nil
		default:
			return today.AddDate(0, 0, -(days - 1)), today, nil
		}
	}
	if req.From.IsZero() || req.To.IsZero() {
		return time.Time{}, time.Time{}, ErrDateRangeInvalid
	}
	from := time.Date(req.From.Year(), req.From.Month(), req.From.Day(), 0, 0, 0, 0, loc)
	to := time.Date(req.To.Year(), req.To.Month(), req.To.Day(), 0, 0, 0, 0, loc)
	if to.Before(from) {
		return time.Time{}, time.Time{}, ErrDateRangeInvalid
	}
	return from, to, nil
}
