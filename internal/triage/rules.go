package triage

import (
	"strings"

	"github.com/dentalai/clinic-triage/internal/patient"
)

// Result is the outcome of classifying one booking request.
type Result struct {
	Priority             patient.Priority `json:"priority"`
	RecommendedAction    string           `json:"recommendedAction"`
	EstimatedWaitMinutes int              `json:"estimatedWaitTimeMinutes"`
	AppointmentType      string           `json:"appointmentType"`
}

// Urgency returns the urgency label paired with the result's priority.
func (r Result) Urgency() patient.UrgencyLevel {
	return r.Priority.Urgency()
}

// Rule matches symptom text by case-insensitive substring. Rules are
// evaluated top to bottom; the first hit wins, there is no scoring.
type Rule struct {
	Keywords []string
	Result   Result
}

// FallbackRules is the deterministic triage table. It has no external
// dependency and is authoritative whenever assisted mode is unavailable,
// times out, or returns an invalid response.
var FallbackRules = []Rule{
	{
		Keywords: []string{"severe", "emergency", "bleeding", "swelling face"},
		Result: Result{
			Priority:             patient.PriorityEmergency,
			RecommendedAction:    "Seek immediate dental care. This appears to be a dental emergency.",
			EstimatedWaitMinutes: 10,
			AppointmentType:      "Emergency",
		},
	},
	{
		Keywords: []string{"pain", "broken", "swelling"},
		Result: Result{
			Priority:             patient.PriorityHigh,
			RecommendedAction:    "Schedule an urgent appointment. You should be seen within 24-48 hours.",
			EstimatedWaitMinutes: 25,
			AppointmentType:      "Urgent Care",
		},
	},
	{
		Keywords: []string{"sensitivity", "discomfort"},
		Result: Result{
			Priority:             patient.PriorityMedium,
			RecommendedAction:    "Schedule an appointment within the next week for evaluation.",
			EstimatedWaitMinutes: 45,
			AppointmentType:      "Treatment",
		},
	},
}

// DefaultResult applies when no rule matches.
var DefaultResult = Result{
	Priority:             patient.PriorityLow,
	RecommendedAction:    "Schedule a routine appointment for evaluation and cleaning.",
	EstimatedWaitMinutes: 90,
	AppointmentType:      "Routine Cleaning",
}

// ClassifyFallback runs the deterministic rule table against raw symptom text.
func ClassifyFallback(symptoms string) Result {
	lower := strings.ToLower(symptoms)
	for _, rule := range FallbackRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Result
			}
		}
	}
	return DefaultResult
}

// ClassifyAppointmentType derives a triage result from the booked
// appointment type when the patient gave no symptom text.
func ClassifyAppointmentType(appointmentType string) Result {
	switch appointmentType {
	case "Emergency":
		return Result{
			Priority:             patient.PriorityEmergency,
			RecommendedAction:    "Come to the clinic right away, an emergency slot is being held.",
			EstimatedWaitMinutes: 10,
			AppointmentType:      "Emergency",
		}
	case "Treatment":
		return Result{
			Priority:             patient.PriorityMedium,
			RecommendedAction:    "Schedule an appointment within the next week for evaluation.",
			EstimatedWaitMinutes: 45,
			AppointmentType:      "Treatment",
		}
	default:
		return Result{
			Priority:             patient.PriorityLow,
			RecommendedAction:    "Schedule a routine appointment for evaluation and cleaning.",
			EstimatedWaitMinutes: 90,
			AppointmentType:      appointmentType,
		}
	}
}
