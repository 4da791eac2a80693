package commands

import (
	"fmt"
	"strings"

	"github.com/cydxin/birdchat"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "建表/补列；--check 只检查缺失的表",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg.MySQL, cfg.Engine.Debug)
			if err != nil {
				return err
			}
			engine := birdchat.NewEngine(
				birdchat.WithDB(db),
				birdchat.WithTablePrefix(cfg.Engine.TablePrefix),
				birdchat.WithLogger(logger),
			)
			if !check {
				if err := engine.AutoMigrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrated")
				return nil
			}
			missing, err := engine.MissingTables()
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing tables: %s", strings.Join(missing, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all tables present")
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "只检查，不修改")
	return cmd
}
