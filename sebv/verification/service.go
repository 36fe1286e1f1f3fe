// Package verification ties detection, snapshot building, reference
// selection and comparison together.
package verification

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/differ"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/interfaces"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/reference"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	"github.com/rs/zerolog"
)

// Detector identifies the installation at a root.
type Detector interface {
	Detect(root string) (trees.Platform, string, error)
}

// Result is the outcome of verifying one installation.
type Result struct {
	Root      string
	Version   string
	Platform  trees.Platform
	Reference *trees.Snapshot
	Items     []differ.ResultItem
	Elapsed   time.Duration
}

// Service runs verifications and reference generation.
type Service struct {
	detector Detector
	builder  interfaces.TreeBuilder
	store    reference.Store
	logger   zerolog.Logger

	now      func() time.Time
	hostname func() (string, error)
}

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock replaces time.Now, used for provenance and timings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHostname replaces os.Hostname.
func WithHostname(hostname func() (string, error)) Option {
	return func(s *Service) { s.hostname = hostname }
}

// NewService creates a service. store may be nil when only explicit
// candidates are verified against.
func NewService(detector Detector, builder interfaces.TreeBuilder, store reference.Store, opts ...Option) *Service {
	s := &Service{
		detector: detector,
		builder:  builder,
		store:    store,
		logger:   zerolog.Nop(),
		now:      time.Now,
		hostname: os.Hostname,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadReferences returns the candidates of the configured store. References
// that fail to load are logged and skipped.
func (s *Service) LoadReferences(ctx context.Context) ([]*trees.Snapshot, error) {
	if s.store == nil {
		return nil, nil
	}
	candidates, err := s.store.LoadAll(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		s.logger.Warn().Err(err).Bool("invalid", errors.Is(err, reference.ErrInvalidReference)).Msg("Some references could not be loaded")
	}
	s.logger.Info().Int("count", len(candidates)).Msg("References loaded")
	return candidates, nil
}

// Verify compares the installation at root with the matching reference of
// the configured store.
func (s *Service) Verify(ctx context.Context, root string) (*Result, error) {
	candidates, err := s.LoadReferences(ctx)
	if err != nil {
		return nil, err
	}
	return s.VerifyAgainst(ctx, root, candidates)
}

// VerifyAgainst compares the installation at root with the matching
// candidate. A missing match is an error carrying the detected identity,
// never an empty result.
func (s *Service) VerifyAgainst(ctx context.Context, root string, candidates []*trees.Snapshot) (*Result, error) {
	start := s.now()
	s.logger.Info().Str("path", root).Msg("Starting verification")

	platform, version, err := s.detector.Detect(root)
	if err != nil {
		s.logger.Error().Err(err).Str("path", root).Msg("Failed to detect installation")
		return nil, fmt.Errorf("failed to detect installation at %s: %w", root, err)
	}
	s.logger.Info().Str("version", version).Stringer("platform", platform).Msg("Detected installation")

	ref, err := reference.Select(version, platform, candidates)
	if err != nil {
		s.logger.Error().Err(err).Int("candidates", len(candidates)).Msg("No matching reference")
		return nil, err
	}
	s.logger.Info().Str("reference", ref.Label()).Str("info", ref.Info).Msg("Selected reference")

	tree, err := s.builder.Build(ctx, root)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build snapshot")
		return nil, err
	}

	items := differ.Verify(tree, ref.Root)
	result := &Result{
		Root:      root,
		Version:   version,
		Platform:  platform,
		Reference: ref,
		Items:     items,
		Elapsed:   s.now().Sub(start),
	}

	problems := 0
	for _, item := range items {
		if item.Problem() {
			problems++
		}
	}
	event := s.logger.Info()
	if problems > 0 {
		event = s.logger.Warn()
	}
	event.Int("items", len(items)).Int("problems", problems).Dur("elapsed", result.Elapsed).Msg("Verification completed")
	return result, nil
}

// GenerateReference snapshots the installation at root as a new reference
// labelled with its detected identity and provenance.
func (s *Service) GenerateReference(ctx context.Context, root string) (*trees.Snapshot, error) {
	s.logger.Info().Str("path", root).Msg("Generating reference")

	platform, version, err := s.detector.Detect(root)
	if err != nil {
		s.logger.Error().Err(err).Str("path", root).Msg("Failed to detect installation")
		return nil, fmt.Errorf("failed to detect installation at %s: %w", root, err)
	}

	tree, err := s.builder.Build(ctx, root)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build snapshot")
		return nil, err
	}

	snap := &trees.Snapshot{
		Info:     s.provenance(),
		Version:  version,
		Platform: platform,
		Root:     tree,
	}
	folders, files := tree.Count()
	s.logger.Info().Str("reference", snap.Label()).Int("folders", folders).Int("files", files).Msg("Reference generated")
	return snap, nil
}

func (s *Service) provenance() string {
	host, err := s.hostname()
	if err != nil || host == "" {
		host = "unknown host"
	}
	return Provenance(s.now(), host, runtime.GOOS, runtime.GOARCH)
}

// Provenance formats the info text stored with generated references.
func Provenance(at time.Time, host, goos, goarch string) string {
	return fmt.Sprintf("Generated at %s on %s (%s/%s)", at.Format(time.RFC3339), host, goos, goarch)
}
