/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/humaidq/trtlog/analytics"
)

// SettingsInput is the editable form of the user settings.
type SettingsInput struct {
	UnitSystem            string     `validate:"required,oneof=EU US"`
	ProtocolWindowSize    int        `validate:"gte=1,lte=24"`
	StabilityWindowMonths int        `validate:"gte=1,lte=120"`
	Sex                   string     `validate:"omitempty,oneof=Male Female"`
	DateOfBirth           *time.Time `validate:"omitempty"`
}

// GetSettings returns the stored settings, or defaults if the row is
// missing.
func GetSettings(ctx context.Context) (analytics.Settings, error) {
	if pool == nil {
		return analytics.Settings{}, ErrDatabaseConnectionNotInitialized
	}

	var (
		settings   analytics.Settings
		unitSystem string
		sex        *string
	)

	err := pool.QueryRow(ctx, `
		SELECT unit_system, protocol_window_size, stability_window_months, sex::text, date_of_birth
		FROM settings
		WHERE id
	`).Scan(&unitSystem, &settings.ProtocolWindowSize, &settings.StabilityWindowMonths, &sex, &settings.DateOfBirth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return analytics.DefaultSettings(), nil
		}

		return analytics.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	settings.UnitSystem = analytics.UnitSystem(unitSystem)
	if sex != nil {
		settings.Sex = *sex
	}

	return settings.Normalized(), nil
}

// UpdateSettings validates and stores the settings.
func UpdateSettings(ctx context.Context, input SettingsInput) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	if err := validateInput(input); err != nil {
		return err
	}

	return upsertSettings(ctx, pool, analytics.Settings{
		UnitSystem:            analytics.UnitSystem(input.UnitSystem),
		ProtocolWindowSize:    input.ProtocolWindowSize,
		StabilityWindowMonths: input.StabilityWindowMonths,
		Sex:                   input.Sex,
		DateOfBirth:           input.DateOfBirth,
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func upsertSettings(ctx context.Context, q execer, settings analytics.Settings) error {
	settings = settings.Normalized()

	var sex *string
	if g := ParseGender(settings.Sex); g != nil {
		s := string(*g)
		sex = &s
	}

	_, err := q.Exec(ctx, `
		INSERT INTO settings (id, unit_system, protocol_window_size, stability_window_months, sex, date_of_birth, updated_at)
		VALUES (true, $1, $2, $3, $4::gender, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			unit_system = EXCLUDED.unit_system,
			protocol_window_size = EXCLUDED.protocol_window_size,
			stability_window_months = EXCLUDED.stability_window_months,
			sex = EXCLUDED.sex,
			date_of_birth = EXCLUDED.date_of_birth,
			updated_at = now()
	`, string(settings.UnitSystem), settings.ProtocolWindowSize, settings.StabilityWindowMonths, sex, settings.DateOfBirth)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	return nil
}
