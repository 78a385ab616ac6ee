package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"incapacity-claims/common/database"
	"incapacity-claims/internal/repository"
)

// requirementsFile is the YAML layout accepted by seed-requirements:
//
//	requirements:
//	  - claim_type_id: 1
//	    doc_type_ids: [1, 2]
type requirementsFile struct {
	Requirements []requirementSet `yaml:"requirements"`
}

type requirementSet struct {
	ClaimTypeID int64   `yaml:"claim_type_id"`
	DocTypeIDs  []int64 `yaml:"doc_type_ids"`
}

func parseRequirements(data []byte) ([]requirementSet, error) {
	var f requirementsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse requirements file: %w", err)
	}
	seen := make(map[int64]bool, len(f.Requirements))
	for _, set := range f.Requirements {
		if set.ClaimTypeID <= 0 {
			return nil, fmt.Errorf("claim_type_id must be positive, got %d", set.ClaimTypeID)
		}
		if seen[set.ClaimTypeID] {
			return nil, fmt.Errorf("claim type %d listed twice", set.ClaimTypeID)
		}
		seen[set.ClaimTypeID] = true
		for _, d := range set.DocTypeIDs {
			if d <= 0 {
				return nil, fmt.Errorf("claim type %d: doc_type_ids must be positive, got %d", set.ClaimTypeID, d)
			}
		}
	}
	return f.Requirements, nil
}

// applyRequirements replaces the rows of every listed claim type. Claim
// types absent from the file are left untouched.
func applyRequirements(ctx context.Context, repo repository.RequirementsRepository, sets []requirementSet, w io.Writer) error {
	for _, set := range sets {
		if err := repo.ReplaceRequirements(ctx, set.ClaimTypeID, set.DocTypeIDs); err != nil {
			return fmt.Errorf("claim type %d: %w", set.ClaimTypeID, err)
		}
		fmt.Fprintf(w, "claim type %d: %d document types\n", set.ClaimTypeID, len(set.DocTypeIDs))
	}
	return nil
}

func printRequirements(ctx context.Context, repo repository.RequirementsRepository, w io.Writer) error {
	rows, err := repo.ListRequirements(ctx)
	if err != nil {
		return err
	}
	byType := make(map[int64][]int64)
	for _, r := range rows {
		byType[r.ClaimTypeID] = append(byType[r.ClaimTypeID], r.DocTypeID)
	}
	ids := make([]int64, 0, len(byType))
	for id := range byType {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(w, "%d\t%v\n", id, byType[id])
	}
	return nil
}

var seedRequirementsCmd = &cobra.Command{
	Use:   "seed-requirements <file.yaml>",
	Short: "Load the claim type to document type requirement matrix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read requirements file: %w", err)
		}
		sets, err := parseRequirements(data)
		if err != nil {
			return err
		}
		db, err := database.NewPostgresDB(databaseConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close(db)
		return applyRequirements(cmd.Context(), repository.NewPostgresRequirementsRepository(db), sets, cmd.OutOrStdout())
	},
}

var listRequirementsCmd = &cobra.Command{
	Use:   "list-requirements",
	Short: "Print the requirement matrix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewPostgresDB(databaseConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close(db)
		return printRequirements(cmd.Context(), repository.NewPostgresRequirementsRepository(db), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(seedRequirementsCmd)
	rootCmd.AddCommand(listRequirementsCmd)
}
