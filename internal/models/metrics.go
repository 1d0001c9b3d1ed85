package models

import "time"

// SystemMetrics is a point-in-time summary of runtime counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	AssignmentConflicts      uint64    `json:"assignment_conflicts"`
	ExportJobsFinished       uint64    `json:"export_jobs_finished"`
	ExportJobsFailed         uint64    `json:"export_jobs_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
