package create_group_session

import (
	"github.com/m04kA/STC-ReservationService/internal/service/schedule/models"
)

// CreateGroupSessionRequest запрос на создание групповой сессии
type CreateGroupSessionRequest struct {
	SlotID          int64   `json:"slotId"`
	Title           string  `json:"title"`
	MinParticipants int     `json:"minParticipants"`
	MaxParticipants int     `json:"maxParticipants"`
	Price           float64 `json:"price"`
}

// ToServiceRequest формирует запрос к сервису
func (r *CreateGroupSessionRequest) ToServiceRequest(userID int64) *models.CreateGroupSessionRequest {
	return &models.CreateGroupSessionRequest{
		UserID:          userID,
		SlotID:          r.SlotID,
		Title:           r.Title,
		MinParticipants: r.MinParticipants,
		MaxParticipants: r.MaxParticipants,
		Price:           r.Price,
	}
}
