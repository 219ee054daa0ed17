// Package seed loads territory and nation fixtures from a YAML file into
// the arbiter database. It is a development tool standing in for the road
// indexer that seeds territories in production.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/territory"
	"github.com/roadwars/roadwars/internal/arbiter/storage/sqlite"
	entrypoint "github.com/roadwars/roadwars/internal/platform/cmd"
)

// Config holds seed command configuration.
type Config struct {
	DBPath       string `env:"ROADWARS_ARBITER_DB_PATH" envDefault:"data/arbiter.db"`
	FixturesPath string `env:"ROADWARS_SEED_FIXTURES" envDefault:"fixtures/world.yaml"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The arbiter SQLite database path")
	fs.StringVar(&cfg.FixturesPath, "fixtures", cfg.FixturesPath, "The YAML fixtures file to load")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Fixtures is the YAML document the seed command loads.
type Fixtures struct {
	Territories []TerritoryFixture `yaml:"territories"`
	Nations     []NationFixture    `yaml:"nations"`
}

// TerritoryFixture seeds one territory row.
type TerritoryFixture struct {
	ID           string `yaml:"id"`
	Controller   string `yaml:"controller"`
	DefenseLevel int64  `yaml:"defense_level"`
}

// NationFixture seeds one nation row.
type NationFixture struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	OwnerWallet    string `yaml:"owner_wallet"`
	TerritoryCount int64  `yaml:"territory_count"`
	AttackRating   int64  `yaml:"attack_rating"`
	DefenseRating  int64  `yaml:"defense_rating"`
}

// Run loads the fixtures file into the database.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	raw, err := os.ReadFile(cfg.FixturesPath)
	if err != nil {
		return fmt.Errorf("read fixtures file: %w", err)
	}
	var fixtures Fixtures
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return fmt.Errorf("parse fixtures file: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open arbiter sqlite store: %w", err)
	}
	defer store.Close()

	now := time.Now().UTC()
	for _, fixture := range fixtures.Nations {
		if err := store.PutNation(ctx, nation.Nation{
			ID:             fixture.ID,
			Name:           fixture.Name,
			OwnerWallet:    fixture.OwnerWallet,
			TerritoryCount: fixture.TerritoryCount,
			AttackRating:   fixture.AttackRating,
			DefenseRating:  fixture.DefenseRating,
			CreatedAt:      now,
			UpdatedAt:      now,
		}); err != nil {
			return fmt.Errorf("seed nation %s: %w", fixture.ID, err)
		}
	}
	for _, fixture := range fixtures.Territories {
		if err := store.PutTerritory(ctx, territory.Territory{
			ID:                 fixture.ID,
			ControllerNationID: fixture.Controller,
			DefenseLevel:       fixture.DefenseLevel,
			CreatedAt:          now,
			UpdatedAt:          now,
		}); err != nil {
			return fmt.Errorf("seed territory %s: %w", fixture.ID, err)
		}
	}

	fmt.Fprintf(out, "seeded %d nations and %d territories\n", len(fixtures.Nations), len(fixtures.Territories))
	return nil
}
