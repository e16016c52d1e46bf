package block_slot

import "context"

type ScheduleService interface {
	BlockSlot(ctx context.Context, slotID int64, userID int64) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
