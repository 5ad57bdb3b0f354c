package scheduling

import "github.com/dentalai/clinic-triage/internal/patient"

// Slot is a single bookable (date, time) pair reserved for a priority tier.
type Slot struct {
	Date     string           `json:"date"`
	Time     string           `json:"time"`
	Priority patient.Priority `json:"priority"`
}

// Clinic is one location in the roster with its ordered slot list.
type Clinic struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Slots   []Slot `json:"availableSlots"`
}

// Roster is the fixed clinic catalog the assignment engine scans, in a
// stable order. It is read-only reference data: assigning a slot does not
// reserve it, and nothing here decrements capacity.
var Roster = []Clinic{
	{
		Name:    "Dental AI Clinic - Downtown",
		Address: "123 Main St, Toronto, ON M5V 3A8",
		Phone:   "(416) 555-0123",
		Slots: []Slot{
			{Date: "2024-01-15", Time: "09:00", Priority: patient.PriorityEmergency},
			{Date: "2024-01-15", Time: "10:30", Priority: patient.PriorityHigh},
			{Date: "2024-01-16", Time: "14:00", Priority: patient.PriorityMedium},
			{Date: "2024-01-17", Time: "11:00", Priority: patient.PriorityLow},
		},
	},
	{
		Name:    "Dental AI Clinic - North York",
		Address: "456 Yonge St, North York, ON M2N 5S2",
		Phone:   "(416) 555-0124",
		Slots: []Slot{
			{Date: "2024-01-15", Time: "08:30", Priority: patient.PriorityEmergency},
			{Date: "2024-01-15", Time: "15:00", Priority: patient.PriorityHigh},
			{Date: "2024-01-16", Time: "10:00", Priority: patient.PriorityMedium},
			{Date: "2024-01-18", Time: "09:30", Priority: patient.PriorityLow},
		},
	},
	{
		Name:    "Dental AI Clinic - Scarborough",
		Address: "789 Kingston Rd, Scarborough, ON M1M 1P5",
		Phone:   "(416) 555-0125",
		Slots: []Slot{
			{Date: "2024-01-15", Time: "13:00", Priority: patient.PriorityEmergency},
			{Date: "2024-01-16", Time: "09:00", Priority: patient.PriorityHigh},
			{Date: "2024-01-17", Time: "16:00", Priority: patient.PriorityMedium},
			{Date: "2024-01-19", Time: "14:30", Priority: patient.PriorityLow},
		},
	},
}

// CatalogEntry is a flattened roster row for the public slot listing.
type CatalogEntry struct {
	ClinicName string           `json:"clinicName"`
	Address    string           `json:"address"`
	Phone      string           `json:"phone"`
	Date       string           `json:"date"`
	Time       string           `json:"time"`
	Priority   patient.Priority `json:"priority"`
}

// Catalog flattens the roster for display, preserving scan order.
func Catalog() []CatalogEntry {
	var entries []CatalogEntry
	for _, clinic := range Roster {
		for _, slot := range clinic.Slots {
			entries = append(entries, CatalogEntry{
				ClinicName: clinic.Name,
				Address:    clinic.Address,
				Phone:      clinic.Phone,
				Date:       slot.Date,
				Time:       slot.Time,
				Priority:   slot.Priority,
			})
		}
	}
	return entries
}
