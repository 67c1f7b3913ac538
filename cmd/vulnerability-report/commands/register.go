package commands

import (
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
	"github.com/codeinsight-reports/vulnerability-report/pkg/registration"
)

func newRegisterCommand(info etc.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the report with Code Insight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, client, err := adminClient(cmd, info)
			if err != nil {
				return err
			}
			ctx, stop := runContext(cmd)
			defer stop()

			_, err = registration.Register(ctx, client, config.Report.Name, config.Report.Path)
			return err
		},
	}
	addAdminFlags(cmd)
	return cmd
}

func newUnregisterCommand(info etc.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unregister",
		Short: "Remove the report from Code Insight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, client, err := adminClient(cmd, info)
			if err != nil {
				return err
			}
			ctx, stop := runContext(cmd)
			defer stop()

			return registration.Unregister(ctx, client, config.Report.Name)
		},
	}
	addAdminFlags(cmd)
	return cmd
}

func addAdminFlags(cmd *cobra.Command) {
	cmd.Flags().String("adminToken", "", "Code Insight admin authorization token [$CODEINSIGHT_ADMIN_TOKEN]")
}

func adminClient(cmd *cobra.Command, info etc.BuildInfo) (etc.Config, codeinsight.Client, error) {
	config, _, err := loadConfig(cmd, info)
	if err != nil {
		return config, nil, err
	}
	if cmd.Flags().Changed("adminToken") {
		config.CodeInsight.AdminToken, _ = cmd.Flags().GetString("adminToken")
	}
	if err = etc.Check(config); err != nil {
		return config, nil, xerrors.Errorf("checking config: %w", err)
	}
	if config.CodeInsight.AdminToken == "" {
		return config, nil, xerrors.New("code insight admin token must not be blank")
	}
	return config, codeinsight.NewClient(config.CodeInsight, config.CodeInsight.AdminToken), nil
}
