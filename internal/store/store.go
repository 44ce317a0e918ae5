package store

import (
	"context"

	"github.com/GenturixHub/genturix-push/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventStore handles security event operations (Redis)
type EventStore interface {
	AddEvent(ctx context.Context, source, level, title, message string, unitID int) (models.SecurityEvent, error)
	GetEvents(ctx context.Context) ([]models.SecurityEvent, error)
	SearchEvents(ctx context.Context, query, level, source string) ([]models.SecurityEvent, error)
	PurgeAllEvents(ctx context.Context) error
	Subscribe(ctx context.Context) *redis.PubSub
}

// AdminStore handles account and registry operations (PostgreSQL)
type AdminStore interface {
	// User methods
	CreateUser(ctx context.Context, username, password, role string) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id int, username, role string) error
	DeleteUser(ctx context.Context, id int) error
	UpdateUserPassword(ctx context.Context, userID int, newPasswordHash string) error
	UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error
	Disable2FA(ctx context.Context, userID int) error

	// Unit methods
	CreateUnit(ctx context.Context, label, block string) (models.Unit, error)
	GetUnits(ctx context.Context) ([]models.Unit, error)
	DeleteUnit(ctx context.Context, id int) error
	AssignUnitToUser(ctx context.Context, userID, unitID int) error
	RemoveUnitFromUser(ctx context.Context, userID, unitID int) error
	GetUserUnits(ctx context.Context, userID int) ([]models.Unit, error)
	GetUnitMembers(ctx context.Context, unitID int) ([]models.User, error)

	// Device methods
	CreateDevice(ctx context.Context, name, location string, createdBy int) (models.Device, error)
	GetDevice(ctx context.Context, id int) (models.Device, error)
	GetDeviceByToken(ctx context.Context, token string) (models.Device, error)
	GetDevices(ctx context.Context) ([]models.Device, error)
	DeleteDevice(ctx context.Context, id int) error

	// Push subscription registry
	SavePushSubscription(ctx context.Context, sub models.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	DeletePushSubscriptionsForUser(ctx context.Context, userID int) error
	DeletePushSubscriptionsForDevice(ctx context.Context, deviceID int) error
	CountPushSubscriptionsForUser(ctx context.Context, userID int) (int, error)
	CountPushSubscriptionsForDevice(ctx context.Context, deviceID int) (int, error)
	GetPushSubscriptions(ctx context.Context) ([]models.PushSubscription, error)
	GetPushSubscriptionsForUnit(ctx context.Context, unitID int) ([]models.PushSubscription, error)
}
