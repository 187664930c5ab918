// Package config provides the YAML configuration loader for buildrules.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Filename is the configuration file looked up inside the conf directory.
const Filename = "buildrules.yaml"

const (
	defaultRetries = 2
	defaultTool    = "spack"
	stateDir       = ".buildrules"
)

// Loader implements ports.ConfigLoader from a buildrules.yaml file.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads <confDir>/buildrules.yaml and returns the sealed rule graph
// plus invocation settings. All reference and shape violations surface
// before any scheduling begins.
func (l *Loader) Load(confDir string) (*domain.Config, error) {
	path := filepath.Join(confDir, Filename)

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfiguration, err.Error()), "path", path)
	}

	targets, err := parseTargets(file.Targets)
	if err != nil {
		return nil, err
	}

	graph, err := buildGraph(file.Specs, targets)
	if err != nil {
		return nil, err
	}

	if err := graph.Seal(); err != nil {
		return nil, err
	}

	cfg := &domain.Config{
		Graph:     graph,
		Targets:   targets,
		Retries:   defaultRetries,
		Tool:      file.Tool,
		StageRoot: resolvePath(confDir, file.Stage, filepath.Join(stateDir, "stage")),
		CachePath: resolvePath(confDir, file.Cache.Path, filepath.Join(stateDir, "cache.json")),
		Artifacts: domain.ArtifactConfig{
			Root:      resolvePath(confDir, file.Artifacts.Root, filepath.Join(stateDir, "artifacts")),
			Endpoint:  file.Artifacts.Endpoint,
			Bucket:    file.Artifacts.Bucket,
			AccessKey: file.Artifacts.AccessKey,
			SecretKey: file.Artifacts.SecretKey,
			UseSSL:    file.Artifacts.UseSSL,
		},
	}
	if file.Retries != nil {
		if *file.Retries < 1 {
			return nil, zerr.Wrap(domain.ErrConfiguration, "retries must be at least 1")
		}
		cfg.Retries = *file.Retries
	}
	if cfg.Tool == "" {
		cfg.Tool = defaultTool
	}

	return cfg, nil
}

func parseTargets(dtos []targetDTO) ([]domain.Target, error) {
	if len(dtos) == 0 {
		return nil, zerr.Wrap(domain.ErrConfiguration, "no targets declared")
	}

	seen := make(map[string]bool, len(dtos))
	targets := make([]domain.Target, 0, len(dtos))
	for _, dto := range dtos {
		if dto.Name == "" {
			return nil, zerr.Wrap(domain.ErrConfiguration, "target without a name")
		}
		if seen[dto.Name] {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrConfiguration, "target declared more than once"),
				"target", dto.Name,
			)
		}
		seen[dto.Name] = true

		concurrency := dto.Concurrency
		if concurrency == 0 {
			concurrency = 1
		}
		if concurrency < 1 {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrConfiguration, "concurrency must be at least 1"),
				"target", dto.Name,
			)
		}

		targets = append(targets, domain.Target{
			Name:        domain.NewInternedString(dto.Name),
			Concurrency: concurrency,
			Runner:      dto.Runner,
		})
	}
	return targets, nil
}

func buildGraph(specs []specDTO, targets []domain.Target) (*domain.RuleGraph, error) {
	known := make(map[string]bool, len(targets))
	for _, t := range targets {
		known[t.Name.String()] = true
	}

	graph := domain.NewRuleGraph()
	for _, dto := range specs {
		if dto.Name == "" {
			return nil, zerr.Wrap(domain.ErrConfiguration, "spec without a name")
		}
		if !known[dto.Target] {
			return nil, zerr.With(
				zerr.With(zerr.Wrap(domain.ErrUnknownTarget, dto.Target), "spec", dto.Name),
				"target", dto.Target,
			)
		}

		rule := &domain.BuildRule{
			Spec:         domain.NewInternedString(dto.Name),
			Target:       domain.NewInternedString(dto.Target),
			Variants:     internStrings(dto.Variants),
			Dependencies: resolveDependencies(dto),
		}
		if err := graph.AddRule(rule); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// resolveDependencies maps depends_on entries to rule IDs. A bare spec name
// refers to the same target; "target/spec" crosses targets.
func resolveDependencies(dto specDTO) []domain.RuleID {
	deps := make([]domain.RuleID, 0, len(dto.DependsOn))
	for _, ref := range dto.DependsOn {
		if target, spec, ok := strings.Cut(ref, "/"); ok {
			deps = append(deps, domain.MakeRuleID(target, spec))
			continue
		}
		deps = append(deps, domain.MakeRuleID(dto.Target, ref))
	}
	return deps
}

func internStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}
	res := make([]domain.InternedString, len(strs))
	for i, s := range strs {
		res[i] = domain.NewInternedString(s)
	}
	return res
}

func resolvePath(confDir, configured, fallback string) string {
	p := configured
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(confDir, p)
}
