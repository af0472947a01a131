package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tripleo/internal/workflows"
)

// NewPlanCmd создаёт группу команд для планов развёртывания.
func NewPlanCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage deployment plans",
	}

	cmd.AddCommand(
		newPlanListCmd(clientsFn, outputFn),
		newPlanCreateCmd(clientsFn),
		newPlanDeleteCmd(clientsFn, outputFn),
		newPlanDeployCmd(clientsFn),
		newPlanExportCmd(clientsFn, outputFn),
	)

	return cmd
}

func newPlanListCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deployment plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(clientsFn, func(c *Clients) error {
				plans, err := c.Workflows.ListPlans(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, len(plans))
				for i, p := range plans {
					rows[i] = []string{p}
				}
				outputFn().Print([]string{"PLAN NAME"}, rows, plans)
				return nil
			})
		},
	}
}

func newPlanCreateCmd(clientsFn ClientsFn) *cobra.Command {
	var templates, planEnvFile, sourceURL string
	var disablePasswords bool

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a deployment plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := workflows.PlanInput{
				Container:           args[0],
				GeneratePasswords:   !disablePasswords,
				SourceURL:           sourceURL,
				TemplatesDir:        templates,
				PlanEnvironmentFile: planEnvFile,
			}

			return withClients(clientsFn, func(c *Clients) error {
				return c.Workflows.CreatePlan(cmd.Context(), in)
			})
		},
	}

	cmd.Flags().StringVar(&templates, "templates", "", "Directory containing the Heat templates to upload")
	cmd.Flags().StringVarP(&planEnvFile, "plan-environment-file", "p", "", "Plan environment file, overrides the default plan-environment.yaml")
	cmd.Flags().BoolVar(&disablePasswords, "disable-password-generation", false, "Disable password generation")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Git repository URL with the templates (default plan only)")
	cmd.MarkFlagsMutuallyExclusive("templates", "source-url")

	return cmd
}

func newPlanDeleteCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	return &cobra.Command{
		Use:   "delete PLAN...",
		Short: "Delete one or more deployment plans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withClients(clientsFn, func(c *Clients) error {
				for _, plan := range args {
					out.Success(fmt.Sprintf("Deleting plan %s...", plan))
					if err := c.Workflows.DeletePlan(cmd.Context(), plan); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newPlanDeployCmd(clientsFn ClientsFn) *cobra.Command {
	var runValidations bool

	cmd := &cobra.Command{
		Use:   "deploy NAME",
		Short: "Deploy a deployment plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(clientsFn, func(c *Clients) error {
				return c.Workflows.DeployPlan(cmd.Context(), args[0], runValidations, false)
			})
		},
	}

	cmd.Flags().BoolVar(&runValidations, "run-validations", false, "Run the pre-deployment validations")

	return cmd
}

func newPlanExportCmd(clientsFn ClientsFn, outputFn OutputFn) *cobra.Command {
	var outFile string
	var force bool

	cmd := &cobra.Command{
		Use:   "export PLAN",
		Short: "Export a deployment plan to a tarball",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := args[0]
			path := outFile
			if path == "" {
				path = plan + ".tar.gz"
			}

			if _, err := os.Stat(path); err == nil && !force {
				return &workflows.WorkflowError{
					Workflow: workflows.WorkflowExportDeploymentPlan,
					Message:  fmt.Sprintf("File '%s' already exists, not exporting.", path),
					Err:      workflows.ErrPlanExport,
				}
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Exporting plan %s...", plan))

			return withClients(clientsFn, func(c *Clients) error {
				tempURL, err := c.Workflows.ExportPlan(cmd.Context(), plan)
				if err != nil {
					return err
				}

				if err := download(cmd, c.Downloader, tempURL, path); err != nil {
					return err
				}

				out.Success(fmt.Sprintf("Plan %s was exported to %s", plan, path))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outFile, "output-file", "o", "", "Name of the output tarball (default: PLAN.tar.gz)")
	cmd.Flags().BoolVarP(&force, "force-overwrite", "f", false, "Overwrite the output file if it exists")

	return cmd
}

// download сохраняет файл по URL. При ошибке частичный файл удаляется.
func download(cmd *cobra.Command, d Downloader, url, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	_, err = d.Download(cmd.Context(), url, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = errors.Join(err, rerr)
		}
		return fmt.Errorf("download plan: %w", err)
	}
	return nil
}
