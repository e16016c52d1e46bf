package create_slots

import (
	"github.com/m04kA/STC-ReservationService/internal/service/schedule/models"
)

// CreateSlotsRequest запрос на создание слотов инструктора на день
type CreateSlotsRequest struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Slots []struct {
		StartTime string `json:"startTime"` // HH:MM
		EndTime   string `json:"endTime"`   // HH:MM
	} `json:"slots"`
}

// ToServiceRequest формирует запрос к сервису
func (r *CreateSlotsRequest) ToServiceRequest(instructorID, userID int64) *models.CreateSlotsRequest {
	req := &models.CreateSlotsRequest{
		InstructorID: instructorID,
		UserID:       userID,
		Date:         r.Date,
		Slots:        make([]models.SlotTimeRange, 0, len(r.Slots)),
	}
	for _, s := range r.Slots {
		req.Slots = append(req.Slots, models.SlotTimeRange{
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}
	return req
}
