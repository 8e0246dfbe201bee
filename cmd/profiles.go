package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/store"
	"github.com/wecollab/matchmaker/internal/store/file"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect and manage the profile store",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active profiles",
	Run: func(_ *cobra.Command, _ []string) {
		listProfiles()
	},
}

var profilesImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import profiles from a YAML or JSON snapshot file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		importProfiles(cmd, args[0])
	},
}

var profilesExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the active profiles to a YAML or JSON snapshot file",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		exportProfiles(args[0])
	},
}

var profilesDeactivateCmd = &cobra.Command{
	Use:   "deactivate ID...",
	Short: "Hide profiles from matchmaking",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		deactivateProfiles(args)
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd, profilesImportCmd, profilesExportCmd, profilesDeactivateCmd)

	profilesImportCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before writing to the store")
}

func listProfiles() {
	ctx := context.Background()
	logger, config := setup()

	backend, err := openStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the profile store", zap.Error(err))
	}
	defer backend.Close()

	profiles, err := backend.ListActiveProfiles(ctx)
	if err != nil {
		logger.Fatal("listing profiles", zap.Error(err))
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUNIVERSITY\tONLINE\tLAST ACTIVE\tSKILLS")
	for _, p := range profiles {
		lastActive := "-"
		if !p.LastActiveAt.IsZero() {
			lastActive = p.LastActiveAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n", p.ID, p.DisplayName, p.University, p.Online, lastActive, p.Skills)
	}
	tw.Flush()

	logger.Info("listed profiles", zap.Int("count", len(profiles)))
}

func importProfiles(cmd *cobra.Command, path string) {
	ctx := context.Background()
	logger, config := setup()

	profiles, active, err := file.Load(path)
	if err != nil {
		logger.Fatal("reading the snapshot file", zap.String("path", path), zap.Error(err))
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if !autoApprove {
		prompt := promptui.Select{
			Label: fmt.Sprintf("Import %d profiles into the %s store?", len(profiles), config.Store.Driver),
			Items: []string{PromptYes, PromptNo},
		}
		_, answer, err := prompt.Run()
		if err != nil {
			logger.Fatal("prompt failed", zap.Error(err))
		}
		if answer != PromptYes {
			logger.Info("import cancelled")
			return
		}
	}

	backend, err := openStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the profile store", zap.Error(err))
	}
	defer backend.Close()

	if err := backend.UpsertProfiles(ctx, profiles); err != nil {
		if errors.Is(err, store.ErrReadOnly) {
			logger.Fatal("the configured store does not accept writes", zap.String("driver", config.Store.Driver))
		}
		logger.Fatal("importing profiles", zap.Error(err))
	}

	inactive := 0
	for _, p := range profiles {
		if active[p.ID] {
			continue
		}
		if err := backend.Deactivate(ctx, p.ID); err != nil {
			logger.Fatal("deactivating profile", zap.String("id", p.ID), zap.Error(err))
		}
		inactive++
	}

	logger.Info("profiles imported", zap.Int("count", len(profiles)), zap.Int("inactive", inactive))
}

func exportProfiles(path string) {
	ctx := context.Background()
	logger, config := setup()

	backend, err := openStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the profile store", zap.Error(err))
	}
	defer backend.Close()

	profiles, err := backend.ListActiveProfiles(ctx)
	if err != nil {
		logger.Fatal("listing profiles", zap.Error(err))
	}

	active := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		active[p.ID] = true
	}

	if err := file.Write(path, profiles, active); err != nil {
		logger.Fatal("writing the snapshot file", zap.String("path", path), zap.Error(err))
	}

	logger.Info("profiles exported", zap.String("path", path), zap.Int("count", len(profiles)))
}

func deactivateProfiles(ids []string) {
	ctx := context.Background()
	logger, config := setup()

	backend, err := openStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the profile store", zap.Error(err))
	}
	defer backend.Close()

	for _, id := range ids {
		if err := backend.Deactivate(ctx, id); err != nil {
			logger.Fatal("deactivating profile", zap.String("id", id), zap.Error(err))
		}
		logger.Info("profile deactivated", zap.String("id", id))
	}
}
