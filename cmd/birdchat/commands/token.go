package commands

import (
	"fmt"

	"github.com/cydxin/birdchat"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "access token 管理",
	}

	var nickname string
	issue := &cobra.Command{
		Use:   "issue <user_id>",
		Short: "为用户签发新的 access token（用户不存在时创建），旧 token 失效",
		Args:  cobra.ExactArgs(1),
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
			token, err := engine.UserService.IssueAccessToken(cmd.Context(), args[0], nickname)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&nickname, "nickname", "", "新建用户时的昵称，默认同 user_id")
	cmd.AddCommand(issue)
	return cmd
}
