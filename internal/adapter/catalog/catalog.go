// Package catalog loads the operator-maintained YAML file that declares the
// sandbox databases, the practice exercises and query policy overrides.
package catalog

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Supported sandbox engines.
const (
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
	EngineSQLite   = "sqlite"
)

// ValidEngines is the set of engines a database entry may declare.
var ValidEngines = map[string]bool{
	EnginePostgres: true,
	EngineMySQL:    true,
	EngineSQLite:   true,
}

// ValidDifficulties is the set of exercise difficulty levels.
var ValidDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// DefaultInitialQuery is the starter code for exercises that do not set one.
const DefaultInitialQuery = "SELECT \n  \nFROM "

// Catalog is the parsed catalog file.
type Catalog struct {
	Databases map[string]Database `yaml:"databases"`
	Exercises []Exercise          `yaml:"exercises"`
	Policy    PolicyConfig        `yaml:"policy"`
}

// Database describes one sandbox. Either DSN or the discrete host fields are
// used for postgres and mysql; sqlite only reads Path.
type Database struct {
	Engine      string   `yaml:"engine"`
	DSN         string   `yaml:"dsn"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	User        string   `yaml:"user"`
	Password    string   `yaml:"password"`
	Name        string   `yaml:"name"`
	Path        string   `yaml:"path"`
	Schemas     []string `yaml:"schemas"` // postgres: limits schema browsing
	DisplayName string   `yaml:"display_name"`
	Description string   `yaml:"description"`
}

// PostgresDSN returns DSN, or builds a URL from the discrete fields.
func (d Database) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// PolicyConfig adjusts the query validator.
type PolicyConfig struct {
	// ExtraForbiddenKeywords are appended to the built-in forbidden list.
	ExtraForbiddenKeywords []string `yaml:"extra_forbidden_keywords"`
}

// Exercise is one practice problem bound to a sandbox database.
type Exercise struct {
	ID           string   `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	Description  string   `yaml:"description" json:"description"`
	Difficulty   string   `yaml:"difficulty" json:"difficulty"`
	Database     string   `yaml:"database" json:"database"`
	ExpectedSQL  string   `yaml:"expected_sql" json:"-"`
	InitialQuery string   `yaml:"initial_query" json:"initial_query"`
	Hints        []Hint   `yaml:"hints" json:"hints"`
	Tags         []string `yaml:"tags" json:"tags"`
	Order        int      `yaml:"order" json:"order"`
}

// ExerciseSummary is the listing view of an exercise.
type ExerciseSummary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Database   string   `json:"database"`
	Tags       []string `json:"tags"`
	Order      int      `json:"order"`
}

func (e Exercise) Summary() ExerciseSummary {
	return ExerciseSummary{
		ID:         e.ID,
		Title:      e.Title,
		Difficulty: e.Difficulty,
		Database:   e.Database,
		Tags:       e.Tags,
		Order:      e.Order,
	}
}

// Hint is a progressively revealed tip. Level 1 is the gentlest.
type Hint struct {
	Level int    `yaml:"level" json:"level"`
	Text  string `yaml:"text" json:"text"`
}

// UnmarshalYAML accepts both a plain string and the struct form.
//
//	hints:
//	  - "Look at the employees table"   # plain string, level taken from position
//	  - level: 2
//	    text: "Filter with WHERE"
func (h *Hint) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		h.Text = value.Value
		return nil
	}
	type alias Hint
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding hint: %w", err)
	}
	*h = Hint(a)
	return nil
}
