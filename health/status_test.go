package health

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
)

func TestStatus_IsHealthy(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{
			name:   "healthy status returns true",
			status: Status{Status: "healthy"},
			want:   true,
		},
		{
			name:   "unhealthy status returns false",
			status: Status{Status: "unhealthy"},
			want:   false,
		},
		{
			name:   "degraded status returns false",
			status: Status{Status: "degraded"},
			want:   false,
		},
		{
			name:   "empty status returns false",
			status: Status{Status: ""},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsHealthy(); got != tt.want {
				t.Errorf("Status.IsHealthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_IsDegraded(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{
			name:   "degraded status returns true",
			status: Status{Status: "degraded"},
			want:   true,
		},
		{
			name:   "healthy status returns false",
			status: Status{Status: "healthy"},
			want:   false,
		},
		{
			name:   "unhealthy status returns false",
			status: Status{Status: "unhealthy"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsDegraded(); got != tt.want {
				t.Errorf("Status.IsDegraded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_IsUnhealthy(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{
			name:   "unhealthy status returns true",
			status: Status{Status: "unhealthy"},
			want:   true,
		},
		{
			name:   "healthy status returns false",
			status: Status{Status: "healthy"},
			want:   false,
		},
		{
			name:   "degraded status returns false",
			status: Status{Status: "degraded"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsUnhealthy(); got != tt.want {
				t.Errorf("Status.IsUnhealthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_WithMetrics(t *testing.T) {
	original := Status{
		Component: "people",
		Status:    StateHealthy,
		Message:   "test message",
	}

	result := original.WithMetrics(&Metrics{Latency: time.Second, ConsecutiveFailures: 5})

	if original.Metrics != nil {
		t.Error("WithMetrics should not modify original status")
	}
	if result.Metrics == nil {
		t.Fatal("WithMetrics should return status with metrics")
	}
	if result.Metrics.Latency != time.Second {
		t.Errorf("Expected latency %v, got %v", time.Second, result.Metrics.Latency)
	}
	if result.Metrics.ConsecutiveFailures != 5 {
		t.Errorf("Expected 5 consecutive failures, got %d", result.Metrics.ConsecutiveFailures)
	}
}

func TestFromProbe(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  string
		wantMessage string
	}{
		{
			name:        "probe succeeded",
			wantStatus:  "healthy",
			wantMessage: "Probe succeeded in 12ms",
		},
		{
			name:        "probe timed out",
			err:         errors.Cancelled(context.DeadlineExceeded),
			wantStatus:  "degraded",
			wantMessage: "Probe did not finish in time",
		},
		{
			name:        "probe failed",
			err:         fmt.Errorf("connection refused"),
			wantStatus:  "unhealthy",
			wantMessage: "connection refused",
		},
		{
			name:        "error text is sanitized",
			err:         fmt.Errorf("dial http://10.0.0.7:8080/v1 failed"),
			wantStatus:  "unhealthy",
			wantMessage: "dial [URL] failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromProbe("wikidata", tt.err, 12*time.Millisecond)

			if result.Component != "wikidata" {
				t.Errorf("Expected component name wikidata, got %s", result.Component)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, result.Status)
			}
			if result.Message != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, result.Message)
			}
			if strings.Contains(result.Message, "10.0.0.7") {
				t.Errorf("Message leaks address: %s", result.Message)
			}

			if result.Metrics == nil {
				t.Fatal("Expected metrics to be set")
			}
			if result.Metrics.Latency != 12*time.Millisecond {
				t.Errorf("Expected latency 12ms, got %v", result.Metrics.Latency)
			}
			if result.Timestamp.IsZero() {
				t.Error("Expected timestamp to be set")
			}
		})
	}
}
