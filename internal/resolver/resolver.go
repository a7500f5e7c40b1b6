// Package resolver turns archive metadata into the canonical requirement
// mapping a spec file is synchronized against.
package resolver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/frederic-klein/specsync/internal/dist"
	"github.com/frederic-klein/specsync/internal/requirement"
)

// Resolver sanitizes and aggregates the requirement categories of a package.
type Resolver struct {
	sanitizer *Sanitizer
	logger    *zap.Logger
}

// Resolution is the outcome of resolving one package's metadata.
type Resolution struct {
	Requirements dist.Requirements
	Discarded    []Discard
}

// NewResolver creates a new requirement resolver.
// A nil logger disables logging.
func NewResolver(env requirement.Environment, ignore map[string]bool, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		sanitizer: NewSanitizer(env, ignore),
		logger:    logger,
	}
}

// Sanitizer returns the sanitizer used by the resolver.
func (r *Resolver) Sanitizer() *Sanitizer {
	return r.sanitizer
}

// Resolve sanitizes every category of meta and merges them, install
// requirements taking precedence over extras, and extras over tests.
func (r *Resolver) Resolve(meta *dist.Metadata) (*Resolution, error) {
	if meta == nil {
		meta = dist.NewMetadata()
	}

	categories := []struct {
		category dist.Category
		raws     []string
	}{
		{dist.CategoryTests, meta.TestsRequire},
		{dist.CategoryExtras, FlattenExtras(meta.ExtrasRequire)},
		{dist.CategoryInstall, meta.InstallRequires},
	}

	res := &Resolution{}
	results := make([]dist.Requirements, 0, len(categories))
	for _, c := range categories {
		result, err := r.sanitizer.Sanitize(c.category, c.raws)
		if err != nil {
			return nil, fmt.Errorf("sanitizing %s requirements: %w", c.category, err)
		}
		r.logger.Debug("sanitized requirements",
			zap.String("category", string(c.category)),
			zap.Int("kept", len(result.Requirements)),
			zap.Int("discarded", len(result.Discarded)))
		for _, d := range result.Discarded {
			r.logger.Debug("discarded requirement",
				zap.String("category", string(d.Category)),
				zap.String("name", d.Name),
				zap.String("raw", d.Raw),
				zap.String("reason", string(d.Reason)))
		}
		results = append(results, result.Requirements)
		res.Discarded = append(res.Discarded, result.Discarded...)
	}

	res.Requirements = Aggregate(results[0], results[1], results[2])
	return res, nil
}

// Aggregate merges the three categories in the order tests, extras, install;
// on a name collision the later category wins.
func Aggregate(tests, extras, install dist.Requirements) dist.Requirements {
	merged := make(dist.Requirements, len(tests)+len(extras)+len(install))
	for _, reqs := range []dist.Requirements{tests, extras, install} {
		for name, req := range reqs {
			merged[name] = req
		}
	}
	return merged
}
