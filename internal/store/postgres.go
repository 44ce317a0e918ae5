package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/GenturixHub/genturix-push/internal/models"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations creates tables if they don't exist and applies schema updates
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	// Create tables
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}

	// Apply migrations for existing tables
	migrations := []string{
		`ALTER TABLE devices ADD COLUMN IF NOT EXISTS location VARCHAR(255) NOT NULL DEFAULT '';`,
		`ALTER TABLE push_subscriptions ADD COLUMN IF NOT EXISTS expiration_time BIGINT;`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// User methods

func (s *PostgresStore) CreateUser(ctx context.Context, username, password, role string) (models.User, error) {
	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, username, password_hash, role, created_at`,
		username, passwordHash, role,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)

	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int) (models.User, error) {
	var user models.User
	var totpSecret sql.NullString
	var lastPasswordChange sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, totp_secret, totp_enabled, last_password_change, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &totpSecret, &user.TOTPEnabled, &lastPasswordChange, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, errors.New("user not found")
	}
	if err != nil {
		return models.User{}, err
	}

	if totpSecret.Valid {
		user.TOTPSecret = totpSecret.String
	}
	if lastPasswordChange.Valid {
		user.LastPasswordChange = lastPasswordChange.Time
	}

	return user, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	var totpSecret sql.NullString
	var lastPasswordChange sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, totp_secret, totp_enabled, last_password_change, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &totpSecret, &user.TOTPEnabled, &lastPasswordChange, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, errors.New("user not found")
	}
	if err != nil {
		return models.User{}, err
	}

	if totpSecret.Valid {
		user.TOTPSecret = totpSecret.String
	}
	if lastPasswordChange.Valid {
		user.LastPasswordChange = lastPasswordChange.Time
	}

	return user, nil
}

func (s *PostgresStore) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, role, totp_secret, totp_enabled, last_password_change, created_at FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var totpSecret sql.NullString
		var lastPasswordChange sql.NullTime

		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &totpSecret, &user.TOTPEnabled, &lastPasswordChange, &user.CreatedAt); err != nil {
			continue
		}

		if totpSecret.Valid {
			user.TOTPSecret = totpSecret.String
		}
		if lastPasswordChange.Valid {
			user.LastPasswordChange = lastPasswordChange.Time
		}

		users = append(users, user)
	}

	return users, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id int, username, role string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = $1, role = $2 WHERE id = $3`,
		username, role, id,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.New("user not found")
	}

	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID int, newPasswordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, last_password_change = NOW() WHERE id = $2`,
		newPasswordHash, userID,
	)
	return err
}

// 2FA methods

func (s *PostgresStore) UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled = $2 WHERE id = $3`,
		totpSecret, enabled, userID,
	)
	return err
}

func (s *PostgresStore) Disable2FA(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled = FALSE WHERE id = $1`,
		userID,
	)
	return err
}

// Unit methods

func (s *PostgresStore) CreateUnit(ctx context.Context, label, block string) (models.Unit, error) {
	var unit models.Unit
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO units (label, block, created_at)
		 VALUES ($1, $2, NOW())
		 RETURNING id, label, block, created_at`,
		label, block,
	).Scan(&unit.ID, &unit.Label, &unit.Block, &unit.CreatedAt)

	return unit, err
}

func (s *PostgresStore) GetUnits(ctx context.Context) ([]models.Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, block, created_at FROM units ORDER BY block, label`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var unit models.Unit
		if err := rows.Scan(&unit.ID, &unit.Label, &unit.Block, &unit.CreatedAt); err != nil {
			continue
		}
		units = append(units, unit)
	}

	return units, nil
}

func (s *PostgresStore) DeleteUnit(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) AssignUnitToUser(ctx context.Context, userID, unitID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO unit_members (user_id, unit_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id, unit_id) DO NOTHING`,
		userID, unitID,
	)
	return err
}

func (s *PostgresStore) RemoveUnitFromUser(ctx context.Context, userID, unitID int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM unit_members WHERE user_id = $1 AND unit_id = $2`,
		userID, unitID,
	)
	return err
}

func (s *PostgresStore) GetUserUnits(ctx context.Context, userID int) ([]models.Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.label, u.block, u.created_at
		 FROM units u
		 INNER JOIN unit_members um ON u.id = um.unit_id
		 WHERE um.user_id = $1
		 ORDER BY u.block, u.label`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var unit models.Unit
		if err := rows.Scan(&unit.ID, &unit.Label, &unit.Block, &unit.CreatedAt); err != nil {
			continue
		}
		units = append(units, unit)
	}

	return units, nil
}

func (s *PostgresStore) GetUnitMembers(ctx context.Context, unitID int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.password_hash, u.role, u.created_at
		 FROM users u
		 INNER JOIN unit_members um ON u.id = um.user_id
		 WHERE um.unit_id = $1
		 ORDER BY u.username ASC`,
		unitID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

// Device methods

func (s *PostgresStore) CreateDevice(ctx context.Context, name, location string, createdBy int) (models.Device, error) {
	token, err := models.GenerateToken()
	if err != nil {
		return models.Device{}, err
	}

	var device models.Device
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO devices (token, name, location, created_by, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, token, name, location, created_by, created_at`,
		token, name, location, createdBy,
	).Scan(&device.ID, &device.Token, &device.Name, &device.Location, &device.CreatedBy, &device.CreatedAt)

	return device, err
}

func (s *PostgresStore) GetDevice(ctx context.Context, id int) (models.Device, error) {
	var device models.Device
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, name, location, created_by, created_at FROM devices WHERE id = $1`,
		id,
	).Scan(&device.ID, &device.Token, &device.Name, &device.Location, &device.CreatedBy, &device.CreatedAt)

	if err == sql.ErrNoRows {
		return models.Device{}, errors.New("device not found")
	}
	return device, err
}

func (s *PostgresStore) GetDeviceByToken(ctx context.Context, token string) (models.Device, error) {
	var device models.Device
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, name, location, created_by, created_at FROM devices WHERE token = $1`,
		token,
	).Scan(&device.ID, &device.Token, &device.Name, &device.Location, &device.CreatedBy, &device.CreatedAt)

	if err == sql.ErrNoRows {
		return models.Device{}, errors.New("device not found")
	}
	return device, err
}

func (s *PostgresStore) GetDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, token, name, location, created_by, created_at FROM devices ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var device models.Device
		if err := rows.Scan(&device.ID, &device.Token, &device.Name, &device.Location, &device.CreatedBy, &device.CreatedAt); err != nil {
			continue
		}
		devices = append(devices, device)
	}

	return devices, nil
}

func (s *PostgresStore) DeleteDevice(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	return err
}

// Push subscription registry

func (s *PostgresStore) SavePushSubscription(ctx context.Context, sub models.PushSubscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, device_id, endpoint, p256dh, auth, expiration_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (endpoint) DO UPDATE
		 SET user_id = EXCLUDED.user_id,
		     device_id = EXCLUDED.device_id,
		     p256dh = EXCLUDED.p256dh,
		     auth = EXCLUDED.auth,
		     expiration_time = EXCLUDED.expiration_time`,
		sub.UserID, sub.DeviceID, sub.Endpoint, sub.P256dh, sub.Auth, sub.ExpirationTime,
	)
	return err
}

func (s *PostgresStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

func (s *PostgresStore) DeletePushSubscriptionsForUser(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1`, userID)
	return err
}

func (s *PostgresStore) DeletePushSubscriptionsForDevice(ctx context.Context, deviceID int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE device_id = $1`, deviceID)
	return err
}

func (s *PostgresStore) CountPushSubscriptionsForUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM push_subscriptions WHERE user_id = $1`, userID,
	).Scan(&count)
	return count, err
}

func (s *PostgresStore) CountPushSubscriptionsForDevice(ctx context.Context, deviceID int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM push_subscriptions WHERE device_id = $1`, deviceID,
	).Scan(&count)
	return count, err
}

func (s *PostgresStore) GetPushSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, device_id, endpoint, p256dh, auth, expiration_time, created_at FROM push_subscriptions`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPushSubscriptions(rows)
}

func (s *PostgresStore) GetPushSubscriptionsForUnit(ctx context.Context, unitID int) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ps.id, ps.user_id, ps.device_id, ps.endpoint, ps.p256dh, ps.auth, ps.expiration_time, ps.created_at
		 FROM push_subscriptions ps
		 INNER JOIN unit_members um ON ps.user_id = um.user_id
		 WHERE um.unit_id = $1`,
		unitID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPushSubscriptions(rows)
}

func scanPushSubscriptions(rows *sql.Rows) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		var expiration sql.NullInt64
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.DeviceID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &expiration, &sub.CreatedAt); err != nil {
			continue
		}
		if expiration.Valid {
			v := expiration.Int64
			sub.ExpirationTime = &v
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
