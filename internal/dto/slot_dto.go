package dto

import (
	"time"

	"github.com/noah-isme/exeats-api/internal/models"
)

// SlotTimeLayout is the format slot times are entered and displayed in.
const SlotTimeLayout = "02/01/06 15:04"

// CreateSlotsRequest describes a batch of consecutive slots. End is optional;
// a batch always contains at least the slot at Start.
type CreateSlotsRequest struct {
	Start           string `json:"starting_at" form:"startingAt" validate:"required"`
	End             string `json:"ending_at" form:"endingAt" validate:"omitempty"`
	DurationMinutes int    `json:"duration" form:"duration" validate:"omitempty,max=1440"`
	Location        string `json:"location" form:"location" validate:"required,max=100"`
}

// SlotStudent summarises the student holding a slot.
type SlotStudent struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Alert bool   `json:"alert"`
}

// SlotResponse is a slot as shown to its tutor.
type SlotResponse struct {
	ID          uint         `json:"id"`
	StartsAt    time.Time    `json:"starts_at"`
	Start       string       `json:"start"`
	Location    string       `json:"location"`
	Attended    bool         `json:"attended"`
	AllocatedTo *SlotStudent `json:"allocated_to"`
}

// SlotSuggestion pre-fills the slot creation form.
type SlotSuggestion struct {
	SuggestedStart  string `json:"suggested_start"`
	Location        string `json:"location"`
	DurationMinutes int    `json:"duration_minutes"`
}

// TimesResponse lists upcoming slots with form defaults.
type TimesResponse struct {
	Slots       []SlotResponse `json:"slots"`
	Suggestions SlotSuggestion `json:"suggestions"`
}

// TimesChangeResponse reports what a POST to the times page changed.
type TimesChangeResponse struct {
	Created int   `json:"created"`
	Deleted int64 `json:"deleted"`
}

// NewSlotResponse converts a slot to its DTO, formatting the start in loc.
func NewSlotResponse(slot models.Slot, loc *time.Location) SlotResponse {
	local := slot.StartsAt.In(loc)
	response := SlotResponse{
		ID:       slot.ID,
		StartsAt: local,
		Start:    local.Format(SlotTimeLayout),
		Location: slot.Location,
		Attended: slot.Attended,
	}
	if slot.AllocatedTo != nil {
		response.AllocatedTo = &SlotStudent{
			ID:    slot.AllocatedTo.ID,
			Name:  slot.AllocatedTo.Name,
			Email: slot.AllocatedTo.Email,
			Alert: slot.AllocatedTo.Alert,
		}
	}
	return response
}

// NewSlotResponseSlice converts slots to DTOs.
func NewSlotResponseSlice(slots []models.Slot, loc *time.Location) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, NewSlotResponse(slot, loc))
	}
	return out
}
