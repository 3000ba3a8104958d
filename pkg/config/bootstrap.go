package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/namespace"
	"github.com/radium-data/radium/pkg/principal"
)

// Bootstrap prepares a freshly started server: it materializes the root
// collection and creates the configured groups and the administrator
// account. Every step is idempotent, so restarting against a persistent
// store is safe.
func Bootstrap(ctx context.Context, ns *namespace.Service, pr *principal.Service, cfg *BootstrapConfig) error {
	if _, err := ns.GetRoot(ctx); err != nil {
		return fmt.Errorf("failed to create root collection: %w", err)
	}

	for _, name := range cfg.Groups {
		if _, err := pr.CreateGroup(ctx, name, "", ""); err != nil {
			if errors.Is(err, principal.ErrAlreadyExists) {
				logger.Debug("Group %q already exists, skipping creation", name)
				continue
			}
			return fmt.Errorf("failed to create group %q: %w", name, err)
		}
		logger.Info("Created group: %s", name)
	}

	// The administrator is only created when a password is configured; an
	// account with an empty password could never authenticate.
	if cfg.Admin.Password == "" {
		return nil
	}

	_, err := pr.CreateUser(ctx, principal.UserSpec{
		Login:         cfg.Admin.Login,
		Password:      cfg.Admin.Password,
		Administrator: true,
		Groups:        []string{"admins"},
	}, "", "")
	if err != nil {
		if errors.Is(err, principal.ErrAlreadyExists) {
			logger.Debug("User %q already exists, skipping creation", cfg.Admin.Login)
			return nil
		}
		return fmt.Errorf("failed to create administrator %q: %w", cfg.Admin.Login, err)
	}

	logger.Info("Created administrator: %s", cfg.Admin.Login)
	return nil
}
