package statusfx

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/yurykabanov/logrotate/internal/configfx"
	"github.com/yurykabanov/logrotate/pkg/domain"
	"github.com/yurykabanov/logrotate/pkg/status"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

type StatusConfig struct {
	Driver string
	Path   string
}

func StatusConfigProvider(v *viper.Viper) (*StatusConfig, error) {
	config := &StatusConfig{
		Driver: v.GetString(configfx.ConfigStateDriver),
		Path:   v.GetString(configfx.ConfigStatePath),
	}

	if config.Path == "" {
		return nil, errors.New("state path is empty")
	}

	return config, nil
}

func OpenStatusStore(config *StatusConfig, logger *logrus.Logger) (status.Store, error) {
	logger.WithFields(logrus.Fields{"driver": config.Driver, "path": config.Path}).Debug("Opening status store")

	switch config.Driver {
	case DriverFile:
		store, err := status.OpenFileStore(config.Path)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to open state file")
		}
		return store, nil
	case DriverSQLite:
		store, err := status.OpenSQLiteStore(config.Path)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to open status database")
		}
		return store, nil
	}

	return nil, errors.Errorf("unknown state driver '%s'", config.Driver)
}

func StatusRepository(store status.Store) domain.StatusRepository {
	return store
}

func CloseStatusStore(lc fx.Lifecycle, store status.Store) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
}
