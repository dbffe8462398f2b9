package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	apperrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
)

const tempFragmentMaxLen = 12

// Resolution is the outcome of matching an external product reference
// against the identity catalog.
type Resolution struct {
	SKU          string
	Name         string
	Temporary    bool
	Created      bool
	LearnedAlias bool
}

// Service resolves external product references to canonical SKUs and
// manages temporary identity remapping.
type Service interface {
	Resolve(ctx context.Context, code, name string) (*Resolution, error)
	Remap(ctx context.Context, tempSKU, targetSKU string) (*models.ProductIdentity, error)
	ListUnmapped(ctx context.Context) ([]models.ProductIdentity, error)
}

type service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time

	// mu serializes resolve/remap so concurrent syncs cannot race on
	// find-or-create of the same identity.
	mu sync.Mutex

	// lastTempMs is the millisecond stamp of the last synthesized temp
	// SKU; guarded by mu so back-to-back synthesis never collides.
	lastTempMs int64
}

// NewServiceParams holds dependencies for the catalog service.
type NewServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService constructs the catalog service.
func NewService(params NewServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "catalog: repo is required")
	}
	if params.Logger == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "catalog: logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, log: params.Logger, now: now}, nil
}

// Resolve maps an external (code, name) pair to a canonical SKU.
// Match order: exact SKU, known alias of either spelling, substring of
// the canonical name. Temporary identities are invisible to matching,
// so a still-unmapped reference synthesizes a fresh temp identity on
// every sighting until someone remaps it.
func (s *service) Resolve(ctx context.Context, code, name string) (*Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" && name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "catalog: code or name is required")
	}

	if code != "" {
		identity, err := s.repo.FindBySKU(ctx, code)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: sku lookup failed")
		}
		if identity != nil && !identity.Temporary {
			return s.hit(ctx, identity, code, name)
		}

		identity, err = s.repo.FindByAlias(ctx, code)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: alias lookup failed")
		}
		if identity != nil {
			return s.hit(ctx, identity, code, name)
		}
	}

	if name != "" {
		identity, err := s.repo.FindByAlias(ctx, name)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: alias lookup failed")
		}
		if identity != nil {
			return s.hit(ctx, identity, code, name)
		}

		identity, err = s.repo.FindByNameSubstring(ctx, name)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: name lookup failed")
		}
		if identity != nil {
			return s.hit(ctx, identity, code, name)
		}
	}

	return s.synthesize(ctx, code, name)
}

// hit records both external spellings as aliases when they are new,
// then returns the canonical resolution.
func (s *service) hit(ctx context.Context, identity *models.ProductIdentity, code, name string) (*Resolution, error) {
	learned := false
	for _, spelling := range []string{code, name} {
		if spelling == "" || strings.EqualFold(spelling, identity.SKU) || strings.EqualFold(spelling, identity.Name) {
			continue
		}
		if identity.HasAlias(spelling) {
			continue
		}
		identity.Aliases = append(identity.Aliases, spelling)
		learned = true
		s.log.Info(s.log.WithSKU(ctx, identity.SKU), fmt.Sprintf("learned alias %q for %s", spelling, identity.SKU))
	}
	if learned {
		if err := s.repo.Save(ctx, identity); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: alias learn failed")
		}
	}
	return &Resolution{
		SKU:          identity.SKU,
		Name:         identity.Name,
		Temporary:    identity.Temporary,
		LearnedAlias: learned,
	}, nil
}

func (s *service) synthesize(ctx context.Context, code, name string) (*Resolution, error) {
	sku := s.tempSKU(name, code)
	identity := &models.ProductIdentity{
		SKU:       sku,
		Name:      name,
		Temporary: true,
		Active:    true,
	}
	if name == "" {
		identity.Name = code
	}
	if code != "" {
		identity.Aliases = append(identity.Aliases, code)
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: temp identity create failed")
	}
	s.log.Warn(s.log.WithSKU(ctx, sku), fmt.Sprintf("unresolved product %q / %q, created temporary identity", code, name))
	return &Resolution{
		SKU:       sku,
		Name:      identity.Name,
		Temporary: true,
		Created:   true,
	}, nil
}

// tempSKU builds TEMP-<FRAGMENT>-<suffix>. The fragment is the first
// word of the name (falling back to the code) and the suffix is a
// unix-millis stamp rendered in base 36, bumped forward under mu when
// two syntheses land on the same millisecond.
func (s *service) tempSKU(name, code string) string {
	source := name
	if source == "" {
		source = code
	}
	fragment := firstToken(source)
	if fragment == "" {
		fragment = "UNKNOWN"
	}
	ms := s.now().UnixMilli()
	if ms <= s.lastTempMs {
		ms = s.lastTempMs + 1
	}
	s.lastTempMs = ms
	suffix := strings.ToUpper(strconv.FormatInt(ms, 36))
	return models.TempSKUPrefix + fragment + "-" + suffix
}

func firstToken(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return ""
	}
	token := strings.ToUpper(fields[0])
	if len(token) > tempFragmentMaxLen {
		token = token[:tempFragmentMaxLen]
	}
	return token
}

// Remap folds a temporary identity into a real SKU. If the target SKU
// already exists the temp identity is merged into it and deactivated;
// otherwise the temp identity is renamed in place and loses its
// temporary flag.
func (s *service) Remap(ctx context.Context, tempSKU, targetSKU string) (*models.ProductIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempSKU = strings.TrimSpace(tempSKU)
	targetSKU = strings.TrimSpace(targetSKU)
	if !strings.HasPrefix(strings.ToUpper(tempSKU), models.TempSKUPrefix) {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("catalog: %q is not a temporary sku", tempSKU))
	}
	if targetSKU == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "catalog: target sku is required")
	}

	temp, err := s.repo.FindBySKU(ctx, tempSKU)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: temp lookup failed")
	}
	if temp == nil || !temp.Temporary {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("catalog: temporary sku %q not found", tempSKU))
	}

	target, err := s.repo.FindBySKU(ctx, targetSKU)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: target lookup failed")
	}

	if target != nil {
		for _, alias := range temp.Aliases {
			if !target.HasAlias(alias) && !strings.EqualFold(alias, target.SKU) {
				target.Aliases = append(target.Aliases, alias)
			}
		}
		if !target.HasAlias(temp.SKU) {
			target.Aliases = append(target.Aliases, temp.SKU)
		}
		if err := s.repo.Save(ctx, target); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: target merge failed")
		}
		temp.Active = false
		if err := s.repo.Save(ctx, temp); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: temp deactivate failed")
		}
		s.log.Info(s.log.WithSKU(ctx, target.SKU), fmt.Sprintf("merged %s into existing identity %s", tempSKU, target.SKU))
		return target, nil
	}

	oldSKU := temp.SKU
	temp.SKU = strings.ToUpper(targetSKU)
	temp.Temporary = false
	if !temp.HasAlias(oldSKU) {
		temp.Aliases = append(temp.Aliases, oldSKU)
	}
	if err := s.repo.Save(ctx, temp); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: temp rename failed")
	}
	s.log.Info(s.log.WithSKU(ctx, temp.SKU), fmt.Sprintf("renamed %s to %s", oldSKU, temp.SKU))
	return temp, nil
}

// ListUnmapped returns the temporary identities still waiting on a
// manual mapping decision.
func (s *service) ListUnmapped(ctx context.Context) ([]models.ProductIdentity, error) {
	identities, err := s.repo.ListTemporary(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "catalog: unmapped list failed")
	}
	return identities, nil
}
