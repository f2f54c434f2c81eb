package models

import "time"

// MetricSample is a single time-stamped numeric measurement.
type MetricSample struct {
	ID        int64     `json:"id,omitempty"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceStatus is the outcome of an availability probe.
type ServiceStatus string

const (
	ServiceUp   ServiceStatus = "up"
	ServiceDown ServiceStatus = "down"
)

// AvailabilitySample records one availability probe of a service.
type AvailabilitySample struct {
	ID             int64         `json:"id,omitempty"`
	Service        string        `json:"service"`
	Status         ServiceStatus `json:"status"`
	ResponseTimeMS *float64      `json:"response_time_ms,omitempty"`
	Error          string        `json:"error,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// MetricSummary aggregates one metric over a window.
type MetricSummary struct {
	Metric string  `json:"metric"`
	Unit   string  `json:"unit,omitempty"`
	Count  int64   `json:"count"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ServiceAvailability summarizes a service's uptime over a window.
type ServiceAvailability struct {
	Service       string        `json:"service"`
	Samples       int64         `json:"samples"`
	UpSamples     int64         `json:"up_samples"`
	UptimePercent float64       `json:"uptime_percent"`
	AvgResponseMS *float64      `json:"avg_response_ms,omitempty"`
	LastStatus    ServiceStatus `json:"last_status"`
	LastChecked   time.Time     `json:"last_checked"`
}
