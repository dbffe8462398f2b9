package catalog

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
)

// RefreshJob re-attempts resolution for temporary identities. An alias
// learned after a temp identity was created may now point at a real
// SKU; when it does, the temp identity is folded in automatically.
type RefreshJob struct {
	repo    Repository
	service Service
	log     *logger.Logger
}

// NewRefreshJob constructs the daily catalog refresh job.
func NewRefreshJob(repo Repository, service Service, log *logger.Logger) *RefreshJob {
	return &RefreshJob{repo: repo, service: service, log: log}
}

func (j *RefreshJob) Name() string {
	return "catalog-refresh"
}

func (j *RefreshJob) Run(ctx context.Context) error {
	temps, err := j.repo.ListTemporary(ctx)
	if err != nil {
		return err
	}

	var errs error
	remapped := 0
	for i := range temps {
		target, err := j.findMatch(ctx, &temps[i])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if target == nil {
			continue
		}
		if _, err := j.service.Remap(ctx, temps[i].SKU, target.SKU); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remap %s: %w", temps[i].SKU, err))
			continue
		}
		remapped++
	}

	j.log.Info(ctx, fmt.Sprintf("catalog refresh: %d temporary identities checked, %d remapped", len(temps), remapped))
	return errs
}

// findMatch looks for a permanent identity that now claims one of the
// temp identity's aliases, either as its SKU or in its alias list.
func (j *RefreshJob) findMatch(ctx context.Context, temp *models.ProductIdentity) (*models.ProductIdentity, error) {
	for _, alias := range temp.Aliases {
		identity, err := j.repo.FindBySKU(ctx, alias)
		if err != nil {
			return nil, fmt.Errorf("refresh lookup %s: %w", alias, err)
		}
		if identity != nil && !identity.Temporary && identity.ID != temp.ID {
			return identity, nil
		}

		identity, err = j.repo.FindByAlias(ctx, alias)
		if err != nil {
			return nil, fmt.Errorf("refresh alias lookup %s: %w", alias, err)
		}
		if identity != nil && !identity.Temporary && identity.ID != temp.ID {
			return identity, nil
		}
	}
	return nil, nil
}
