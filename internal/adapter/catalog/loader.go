package catalog

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a YAML catalog, expands ${VAR} references from the
// environment and returns a validated Catalog.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// envRef matches ${NAME}. Bare $NAME is left alone so SQL literals such as
// 'US$5' survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Parse decodes catalog YAML. It is LoadFromFile without the file read.
func Parse(data []byte) (*Catalog, error) {
	expanded := expandEnv(string(data))

	var cat Catalog
	if err := yaml.Unmarshal([]byte(expanded), &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}

	normalize(&cat)

	if err := validate(&cat); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return &cat, nil
}

func normalize(cat *Catalog) {
	for i := range cat.Exercises {
		ex := &cat.Exercises[i]
		ex.Difficulty = strings.ToLower(strings.TrimSpace(ex.Difficulty))
		if strings.TrimSpace(ex.InitialQuery) == "" {
			ex.InitialQuery = DefaultInitialQuery
		}
		for j := range ex.Hints {
			if ex.Hints[j].Level == 0 {
				ex.Hints[j].Level = j + 1
			}
		}
		slices.SortStableFunc(ex.Hints, func(a, b Hint) int { return a.Level - b.Level })
		if ex.Tags == nil {
			ex.Tags = []string{}
		}
	}
	for id, db := range cat.Databases {
		db.Engine = strings.ToLower(strings.TrimSpace(db.Engine))
		cat.Databases[id] = db
	}
}

func validate(cat *Catalog) error {
	if len(cat.Databases) == 0 {
		return fmt.Errorf("databases: at least one sandbox database is required")
	}
	for id, db := range cat.Databases {
		if id == "" {
			return fmt.Errorf("databases contains an empty key")
		}
		if !ValidEngines[db.Engine] {
			return fmt.Errorf("databases[%q].engine: invalid value %q (allowed: postgres, mysql, sqlite)", id, db.Engine)
		}
		switch db.Engine {
		case EngineSQLite:
			if db.Path == "" {
				return fmt.Errorf("databases[%q]: path is required for sqlite", id)
			}
		default:
			if db.DSN == "" && db.Host == "" {
				return fmt.Errorf("databases[%q]: dsn or host is required for %s", id, db.Engine)
			}
		}
	}

	seen := make(map[string]bool, len(cat.Exercises))
	for i, ex := range cat.Exercises {
		if ex.ID == "" {
			return fmt.Errorf("exercises[%d].id is required", i)
		}
		if seen[ex.ID] {
			return fmt.Errorf("exercises[%d].id: duplicate id %q", i, ex.ID)
		}
		seen[ex.ID] = true
		if _, ok := cat.Databases[ex.Database]; !ok {
			return fmt.Errorf("exercises[%q].database: unknown database %q", ex.ID, ex.Database)
		}
		if strings.TrimSpace(ex.ExpectedSQL) == "" {
			return fmt.Errorf("exercises[%q].expected_sql is required", ex.ID)
		}
		if !ValidDifficulties[ex.Difficulty] {
			return fmt.Errorf("exercises[%q].difficulty: invalid value %q (allowed: easy, medium, hard)", ex.ID, ex.Difficulty)
		}
	}

	for i, kw := range cat.Policy.ExtraForbiddenKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("policy.extra_forbidden_keywords[%d] is empty", i)
		}
	}
	return nil
}
