// Package monitoring 提供预测服务指标
package monitoring

import (
	"runtime"
	"sort"
	"sync"
	"time"
)

// PredictionMetrics 预测业务指标
type PredictionMetrics struct {
	metricsLock sync.RWMutex

	predictCount int64
	bulkCount    int64
	bulkRows     int64
	labelCounts  map[string]int64
	errorCounts  map[string]int64

	startTime time.Time
}

// LabelStat 单个标签统计
type LabelStat struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Snapshot 指标快照
type Snapshot struct {
	Uptime       string           `json:"uptime"`
	Goroutines   int              `json:"goroutines"`
	PredictCount int64            `json:"predict_count"`
	BulkCount    int64            `json:"bulk_count"`
	BulkRows     int64            `json:"bulk_rows"`
	Labels       []LabelStat      `json:"labels"`
	Errors       map[string]int64 `json:"errors"`
}

// NewPredictionMetrics 创建预测指标
func NewPredictionMetrics() *PredictionMetrics {
	return &PredictionMetrics{
		labelCounts: make(map[string]int64),
		errorCounts: make(map[string]int64),
		startTime:   time.Now(),
	}
}

// RecordPrediction 记录单条预测
func (pm *PredictionMetrics) RecordPrediction(label string) {
	pm.metricsLock.Lock()
	defer pm.metricsLock.Unlock()

	pm.predictCount++
	pm.labelCounts[label]++
}

// RecordBulk 记录批量预测
func (pm *PredictionMetrics) RecordBulk(labels []string) {
	pm.metricsLock.Lock()
	defer pm.metricsLock.Unlock()

	pm.bulkCount++
	pm.bulkRows += int64(len(labels))
	for _, label := range labels {
		pm.labelCounts[label]++
	}
}

// RecordError 记录错误
func (pm *PredictionMetrics) RecordError(kind string) {
	pm.metricsLock.Lock()
	defer pm.metricsLock.Unlock()

	pm.errorCounts[kind]++
}

// GetUptime 获取运行时间
func (pm *PredictionMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// Snapshot 获取指标快照
func (pm *PredictionMetrics) Snapshot() Snapshot {
	pm.metricsLock.RLock()
	defer pm.metricsLock.RUnlock()

	labels := make([]LabelStat, 0, len(pm.labelCounts))
	for label, count := range pm.labelCounts {
		labels = append(labels, LabelStat{Label: label, Count: count})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Count != labels[j].Count {
			return labels[i].Count > labels[j].Count
		}
		return labels[i].Label < labels[j].Label
	})

	errs := make(map[string]int64, len(pm.errorCounts))
	for kind, count := range pm.errorCounts {
		errs[kind] = count
	}

	return Snapshot{
		Uptime:       pm.GetUptime().Round(time.Second).String(),
		Goroutines:   runtime.NumGoroutine(),
		PredictCount: pm.predictCount,
		BulkCount:    pm.bulkCount,
		BulkRows:     pm.bulkRows,
		Labels:       labels,
		Errors:       errs,
	}
}
