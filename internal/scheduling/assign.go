package scheduling

import (
	"fmt"

	"github.com/dentalai/clinic-triage/internal/patient"
)

// Assignment is a scheduled clinic/date/time plus a human-readable
// justification for how it was chosen.
type Assignment struct {
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
	ClinicName    string `json:"clinicName"`
	ClinicAddress string `json:"clinicAddress"`
	ClinicPhone   string `json:"clinicPhone"`
	Reasoning     string `json:"reasoning"`
}

// targetTier maps an urgency label to the slot tier to search for.
func targetTier(urgency patient.UrgencyLevel) patient.Priority {
	switch urgency {
	case patient.UrgencyEmergency:
		return patient.PriorityEmergency
	case patient.UrgencyUrgent:
		return patient.PriorityHigh
	case patient.UrgencySoon:
		return patient.PriorityMedium
	default:
		return patient.PriorityLow
	}
}

// Assign picks a slot for the given urgency/priority pair. It never fails:
// the roster is scanned in fixed order and the first tier match wins; an
// emergency search also accepts high-tier slots. When nothing matches, the
// very first slot of the first clinic is handed out with demand-fallback
// reasoning. The chosen slot is not reserved, so concurrent bookings may
// land on the same nominal slot.
func Assign(urgency patient.UrgencyLevel, priority patient.Priority) Assignment {
	target := targetTier(urgency)

	for _, clinic := range Roster {
		for _, slot := range clinic.Slots {
			if slot.Priority == target ||
				(target == patient.PriorityEmergency && slot.Priority == patient.PriorityHigh) {
				return Assignment{
					ScheduledDate: slot.Date,
					ScheduledTime: slot.Time,
					ClinicName:    clinic.Name,
					ClinicAddress: clinic.Address,
					ClinicPhone:   clinic.Phone,
					Reasoning:     fmt.Sprintf("Assigned based on %s urgency level and %s priority", urgency, priority),
				}
			}
		}
	}

	fallback := Roster[0]
	slot := fallback.Slots[0]
	return Assignment{
		ScheduledDate: slot.Date,
		ScheduledTime: slot.Time,
		ClinicName:    fallback.Name,
		ClinicAddress: fallback.Address,
		ClinicPhone:   fallback.Phone,
		Reasoning:     "Assigned to earliest available slot due to high demand",
	}
}
