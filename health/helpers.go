package health

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// States a Status can be in.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

func newStatus(component, state, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a healthy status.
func NewHealthy(component, message string) Status {
	return newStatus(component, StateHealthy, message)
}

// NewUnhealthy creates an unhealthy status.
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StateUnhealthy, message)
}

// NewDegraded creates a degraded status.
func NewDegraded(component, message string) Status {
	return newStatus(component, StateDegraded, message)
}

// Aggregate reports the worst of subStatuses: unhealthy beats degraded beats
// healthy. The result lists the sub-statuses sorted by component and its
// message names every component that is not healthy.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "No components registered")
	}

	subs := slices.Clone(subStatuses)
	slices.SortFunc(subs, func(a, b Status) int {
		return strings.Compare(a.Component, b.Component)
	})

	var unhealthy, degraded []string
	for _, sub := range subs {
		switch {
		case sub.IsUnhealthy():
			unhealthy = append(unhealthy, sub.Component)
		case sub.IsDegraded():
			degraded = append(degraded, sub.Component)
		}
	}

	var status Status
	switch {
	case len(unhealthy) > 0:
		msg := "Unhealthy: " + strings.Join(unhealthy, ", ")
		if len(degraded) > 0 {
			msg += "; degraded: " + strings.Join(degraded, ", ")
		}
		status = NewUnhealthy(component, msg)
	case len(degraded) > 0:
		status = NewDegraded(component, "Degraded: "+strings.Join(degraded, ", "))
	default:
		status = NewHealthy(component, fmt.Sprintf("All %d components healthy", len(subs)))
	}
	status.SubStatuses = subs
	return status
}
