package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/thepool/internal/domain/profile"
)

// seedFile is the YAML layout accepted by `poolctl seed`.
type seedFile struct {
	Profiles []profile.Profile `yaml:"profiles"`
}

func newSeedCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Upsert profiles from a YAML file",
		Long: `Reads a YAML document with a top-level "profiles" list and upserts each one.
Profiles without an id get a random UUID. Stored embeddings are replaced, so run
"poolctl reindex" afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := loadSeed(args[0])
			if err != nil {
				return err
			}

			a, logger, err := g.bootstrap(cmd.Context(), "warn")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer a.Close()

			var created, updated int
			for i := range profiles {
				isNew, err := a.Profiles.Upsert(cmd.Context(), &profiles[i])
				if err != nil {
					return fmt.Errorf("upsert %s: %w", profiles[i].ID, err)
				}
				if isNew {
					created++
				} else {
					updated++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d profiles: %d created, %d updated\n",
				len(profiles), created, updated)
			return nil
		},
	}
}

// loadSeed parses and validates a seed file, assigning UUIDs to profiles without an id.
func loadSeed(path string) ([]profile.Profile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Profiles))
	for i := range f.Profiles {
		p := &f.Profiles[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if err := profile.ValidateID(p.ID); err != nil {
			return nil, fmt.Errorf("profile #%d: %w", i+1, err)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("profile %s: name is required", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("profile %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return f.Profiles, nil
}
