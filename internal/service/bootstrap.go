package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
)

// BootstrapConfig names the accounts that must exist at start-up.  Empty
// emails are skipped.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdvisorName   string
	AdvisorEmail  string
}

// Bootstrap creates the start-up admin (active, ADMIN) and advisor when
// they are missing.  Running it again is a no-op.
func Bootstrap(ctx context.Context, cfg BootstrapConfig, users *UserService, advisors *AdvisorService, log zerolog.Logger) error {
	if cfg.AdminEmail != "" {
		_, err := users.FindByEmail(ctx, cfg.AdminEmail)
		switch apperror.KindOf(err) {
		case apperror.KindNotFound:
			pw := cfg.AdminPassword
			if _, err := users.Create(ctx, NewUser{
				FirstName: "Admin",
				LastName:  "Admin",
				Email:     cfg.AdminEmail,
				Password:  &pw,
				Role:      model.RoleAdmin,
				IsActive:  true,
			}, AdminPolicy); err != nil {
				return err
			}
			log.Info().Str("email", cfg.AdminEmail).Msg("bootstrap admin created")
		default:
			if err != nil {
				return err
			}
		}
	}

	if cfg.AdvisorEmail != "" {
		exists, err := advisors.Exists(ctx, cfg.AdvisorEmail)
		if err != nil || exists {
			return err
		}
		name := cfg.AdvisorName
		if name == "" {
			name = cfg.AdvisorEmail
		}
		if _, err := advisors.Create(ctx, name, cfg.AdvisorEmail); err != nil {
			return err
		}
		log.Info().Str("email", cfg.AdvisorEmail).Msg("bootstrap advisor created")
	}
	return nil
}
