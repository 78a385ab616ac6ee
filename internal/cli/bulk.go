package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"incapacity-claims/common/database"
	"incapacity-claims/internal/audit"
	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/events"
	"incapacity-claims/internal/repository"
	"incapacity-claims/internal/service"
)

var (
	bulkFrom     int
	bulkTo       int
	bulkReviewer int64
)

var bulkStatusCmd = &cobra.Command{
	Use:     "bulk-status",
	Short:   "Move every claim in one status to another",
	Example: `  claims-admin bulk-status --from 11 --to 12 --reviewer 1`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bulkReviewer <= 0 {
			return fmt.Errorf("--reviewer is required")
		}
		log := newLogger()
		defer log.Sync()

		db, err := database.NewPostgresDB(databaseConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close(db)

		// Bulk moves send no notifications; only the audit trail listens.
		emitter := events.NewLocalEmitter(log, audit.NewRecorder(repository.NewPostgresAuditRepository(db), log))
		svc := service.NewClaimService(service.ClaimServiceDeps{
			Claims:       repository.NewPostgresClaimsRepository(db, log),
			Requirements: repository.NewPostgresRequirementsRepository(db),
			Catalog:      repository.NewPostgresCatalogRepository(db),
			Users:        repository.NewPostgresUsersRepository(db),
			Emitter:      emitter,
		}, log)

		n, err := svc.BulkTransition(cmd.Context(), domain.ClaimStatus(bulkFrom), domain.ClaimStatus(bulkTo), bulkReviewer)
		emitter.Wait()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d claims moved from %s to %s\n",
			n, domain.ClaimStatus(bulkFrom), domain.ClaimStatus(bulkTo))
		return nil
	},
}

func init() {
	bulkStatusCmd.Flags().IntVar(&bulkFrom, "from", int(domain.StatusPending), "source status code")
	bulkStatusCmd.Flags().IntVar(&bulkTo, "to", int(domain.StatusReviewed), "target status code")
	bulkStatusCmd.Flags().Int64Var(&bulkReviewer, "reviewer", 0, "reviewer user id recorded in the audit trail")
	rootCmd.AddCommand(bulkStatusCmd)
}
