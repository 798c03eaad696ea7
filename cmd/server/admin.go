package main

import (
	"fmt"

	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		// bootstrap 内部已完成迁移
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer closeDB(log)

		log.Info("database migrated", zap.String("driver", cfg.DatabaseDriver))
		fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	flagUsername string
	flagEmail    string
	flagPassword string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer closeDB(log)

		tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration)
		svc := service.NewAuthService(db.DB, tokens, nil)

		result, err := svc.Register(cmd.Context(), service.RegisterInput{
			Username: flagUsername,
			Email:    flagEmail,
			Password: flagPassword,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		log.Info("user created", zap.Uint("user_id", result.User.ID), zap.String("username", result.User.Username))
		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", result.User.Username, result.User.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&flagUsername, "username", "", "username (3-50 characters)")
	userCreateCmd.Flags().StringVar(&flagEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&flagPassword, "password", "", "password (at least 6 characters)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}
