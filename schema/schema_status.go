package schema

import "time"

// IndexStatus represents the status of the durable index store.
type IndexStatus struct {
	Backend           string           `json:"backend"`
	Connected         bool             `json:"connected"`
	TotalRepositories int              `json:"total_repositories"`
	TotalFingerprints int              `json:"total_fingerprints"`
	LastUpdateTime    time.Time        `json:"last_update_time"`
	OldestCreateTime  time.Time        `json:"oldest_create_time"`
	TableSizes        map[string]int64 `json:"table_sizes"`
	DatabaseSizeBytes int64            `json:"database_size_bytes"`
}

// CacheStatus represents the status of the in-memory result cache.
type CacheStatus struct {
	Entries        int           `json:"entries"`
	Capacity       int           `json:"capacity"` // 0 means unbounded
	TTL            time.Duration `json:"ttl"`
	InFlight       int           `json:"in_flight"`
	Hits           int64         `json:"hits"`
	Misses         int64         `json:"misses"`
	Joins          int64         `json:"joins"`
	Evictions      int64         `json:"evictions"`
	WarmStartCount int           `json:"warm_start_count"`
}

// QueueStatus represents the status of the task queue.
type QueueStatus struct {
	MaxConcurrency int   `json:"max_concurrency"`
	Running        int   `json:"running"`
	Pending        int   `json:"pending"`
	Processed      int64 `json:"processed"`
	Failed         int64 `json:"failed"`
	Cancelled      int64 `json:"cancelled"`
}
