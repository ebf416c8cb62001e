package models

import "fmt"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

func (s Status) String() string { return string(s) }

// Role identifies who is acting on a booking.
type Role string

const (
	RoleCustomer   Role = "Customer"
	RoleStaff      Role = "Staff"
	RoleManager    Role = "Manager"
	RoleConsultant Role = "Consultant"
	RoleAdmin      Role = "Admin"
	RoleSystem     Role = "System"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleStaff, RoleManager, RoleConsultant, RoleAdmin, RoleSystem:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %s", s)
	}
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// IsStaff reports whether the role belongs to the back office.
func (r Role) IsStaff() bool {
	switch r {
	case RoleStaff, RoleManager, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

const (
	// DateLayout формат даты записи
	DateLayout = "2006-01-02"
	// TimeLayout формат времени записи
	TimeLayout = "15:04"

	// DefaultCancellationNotice сообщение об условиях отмены
	DefaultCancellationNotice = "Cancellations are non-refundable."

	// DefaultPageSize размер страницы истории записей
	DefaultPageSize = 5
	// MaxPageSize максимальный размер страницы
	MaxPageSize = 100

	// CustomerRateLimit количество изменений записей в окне
	CustomerRateLimit = 20
	// CustomerRateWindow окно ограничения в секундах
	CustomerRateWindow = 60

	// RatingCacheTTL время жизни кэша рейтингов в секундах
	RatingCacheTTL = 10 * 60
	// ConsultantCacheTTL время жизни кэша консультантов в секундах
	ConsultantCacheTTL = 30 * 60

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128
)
