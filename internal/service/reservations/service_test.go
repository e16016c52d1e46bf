package reservations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	bookingRepository "github.com/m04kA/STC-ReservationService/internal/infra/storage/booking"
	groupRepository "github.com/m04kA/STC-ReservationService/internal/infra/storage/groupsession"
	slotRepository "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	"github.com/m04kA/STC-ReservationService/internal/service/reservations/models"
)

// Фейки репозиториев

type fakeBookingRepo struct {
	booking      *domain.Booking
	byClient     []*domain.Booking
	byInstructor []*domain.Booking

	clientStatus *domain.BookingStatus
	filter       domain.InstructorBookingsFilter
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	if f.booking == nil || f.booking.ID != id {
		return nil, bookingRepository.ErrBookingNotFound
	}
	cp := *f.booking
	return &cp, nil
}

func (f *fakeBookingRepo) GetByClientID(_ context.Context, _ int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	f.clientStatus = status
	return f.byClient, nil
}

func (f *fakeBookingRepo) GetByInstructorWithFilter(_ context.Context, filter domain.InstructorBookingsFilter) ([]*domain.Booking, error) {
	f.filter = filter
	return f.byInstructor, nil
}

type fakeSlotRepo struct {
	slot *domain.Slot
}

func (f *fakeSlotRepo) GetByID(_ context.Context, id int64) (*domain.Slot, error) {
	if f.slot == nil || f.slot.ID != id {
		return nil, slotRepository.ErrSlotNotFound
	}
	cp := *f.slot
	return &cp, nil
}

type fakeGroupRepo struct {
	session *domain.GroupSession
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id int64) (*domain.GroupSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, groupRepository.ErrSessionNotFound
	}
	cp := *f.session
	return &cp, nil
}

type readOnlyTxManager struct {
	calls int
}

func (m *readOnlyTxManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Хелперы

func slotBooking() *domain.Booking {
	slotID := int64(42)
	return &domain.Booking{
		ID:                77,
		ClientID:          100,
		SlotID:            &slotID,
		ParticipantsCount: 1,
		Price:             1500,
		Status:            domain.BookingConfirmed,
		Description:       "Training 2025-06-02 10:00-11:00",
	}
}

func groupBooking() *domain.Booking {
	sessionID := int64(5)
	return &domain.Booking{
		ID:                78,
		ClientID:          100,
		GroupSessionID:    &sessionID,
		ParticipantsCount: 2,
		Price:             1000,
		Status:            domain.BookingConfirmed,
		Description:       "Morning yoga",
	}
}

type fixture struct {
	books   *fakeBookingRepo
	slots   *fakeSlotRepo
	groups  *fakeGroupRepo
	txMgr   *readOnlyTxManager
	service *Service
}

func newFixture() *fixture {
	f := &fixture{
		books:  &fakeBookingRepo{},
		slots:  &fakeSlotRepo{},
		groups: &fakeGroupRepo{},
		txMgr:  &readOnlyTxManager{},
	}
	f.service = NewService(f.books, f.slots, f.groups, f.txMgr, nopLogger{})
	return f
}

// Тесты

func TestGetByID_OwnerClient(t *testing.T) {
	f := newFixture()
	f.books.booking = slotBooking()

	resp, err := f.service.GetByID(context.Background(), 77, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(77), resp.ID)
	assert.Equal(t, "confirmed", resp.Status)

	// Чтение и проверка доступа выполняются одним read-only снапшотом
	assert.Equal(t, 1, f.txMgr.calls)
}

func TestGetByID_SlotInstructor(t *testing.T) {
	f := newFixture()
	f.books.booking = slotBooking()
	f.slots.slot = &domain.Slot{ID: 42, InstructorID: 7}

	_, err := f.service.GetByID(context.Background(), 77, 7)
	require.NoError(t, err)
}

func TestGetByID_GroupInstructorResolvedThroughSession(t *testing.T) {
	f := newFixture()
	f.books.booking = groupBooking()
	f.groups.session = &domain.GroupSession{ID: 5, SlotID: 42}
	f.slots.slot = &domain.Slot{ID: 42, InstructorID: 7}

	_, err := f.service.GetByID(context.Background(), 78, 7)
	require.NoError(t, err)
}

func TestGetByID_StrangerDenied(t *testing.T) {
	f := newFixture()
	f.books.booking = slotBooking()
	f.slots.slot = &domain.Slot{ID: 42, InstructorID: 7}

	_, err := f.service.GetByID(context.Background(), 77, 999)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestGetByID_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.GetByID(context.Background(), 77, 100)
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetClientBookings(t *testing.T) {
	f := newFixture()
	f.books.byClient = []*domain.Booking{slotBooking(), groupBooking()}

	resp, err := f.service.GetClientBookings(context.Background(), &models.GetClientBookingsRequest{
		ClientID: 100,
		UserID:   100,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Nil(t, f.books.clientStatus)
}

func TestGetClientBookings_StatusFilter(t *testing.T) {
	f := newFixture()
	status := "confirmed"

	_, err := f.service.GetClientBookings(context.Background(), &models.GetClientBookingsRequest{
		ClientID: 100,
		UserID:   100,
		Status:   &status,
	})
	require.NoError(t, err)
	require.NotNil(t, f.books.clientStatus)
	assert.Equal(t, domain.BookingConfirmed, *f.books.clientStatus)
}

func TestGetClientBookings_ForeignHistoryDenied(t *testing.T) {
	f := newFixture()

	_, err := f.service.GetClientBookings(context.Background(), &models.GetClientBookingsRequest{
		ClientID: 100,
		UserID:   101,
	})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestGetClientBookings_InvalidStatus(t *testing.T) {
	f := newFixture()
	status := "teleported"

	_, err := f.service.GetClientBookings(context.Background(), &models.GetClientBookingsRequest{
		ClientID: 100,
		UserID:   100,
		Status:   &status,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetInstructorBookings(t *testing.T) {
	f := newFixture()
	f.books.byInstructor = []*domain.Booking{slotBooking()}

	resp, err := f.service.GetInstructorBookings(context.Background(), &models.GetInstructorBookingsRequest{
		InstructorID:    7,
		UserID:          7,
		IncludeInactive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.True(t, f.books.filter.IncludeInactive)
}

func TestGetInstructorBookings_ForeignScheduleDenied(t *testing.T) {
	f := newFixture()

	_, err := f.service.GetInstructorBookings(context.Background(), &models.GetInstructorBookingsRequest{
		InstructorID: 7,
		UserID:       8,
	})
	require.ErrorIs(t, err, ErrAccessDenied)
}
