package main

import (
	"fmt"
	"sort"

	"github.com/narvanalabs/persistent-params/internal/defaults"
	"github.com/narvanalabs/persistent-params/internal/history"
	"github.com/narvanalabs/persistent-params/internal/jobconfig"
	"github.com/narvanalabs/persistent-params/internal/resolver"
	"github.com/spf13/cobra"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "create or reconfigure jobs from a YAML jobs file",
	Long: `import reads a jobs file and creates the jobs it names, or replaces the
configuration of jobs that already exist. Parameters whose configuration is
unchanged keep their identity.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := jobconfig.LoadFile(args[0])
		if err != nil {
			return err
		}
		jobs, err := file.ToJobs()
		if err != nil {
			return err
		}
		if importDryRun {
			for _, job := range jobs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d parameters\n", job.Name, job.Kind, len(job.ParameterSpecs()))
			}
			return nil
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := commandContext()
		defer cancel()
		result, err := jobconfig.Import(ctx, st.Jobs(), jobs, log.Logger)
		if err != nil {
			return err
		}
		log.Info("import complete", "created", len(result.Created), "updated", len(result.Updated))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "write every job's configuration as a YAML jobs file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := commandContext()
		defer cancel()
		jobs, err := st.Jobs().List(ctx)
		if err != nil {
			return fmt.Errorf("listing jobs: %w", err)
		}
		data, err := jobconfig.FromJobs(jobs).Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var defaultsCmd = &cobra.Command{
	Use:   "defaults JOB",
	Short: "print the effective parameter defaults of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := commandContext()
		defer cancel()
		job, err := st.Jobs().GetByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("job %s: %w", args[0], err)
		}

		svc := defaults.NewService(
			resolver.New(st.Jobs(), resolver.WithLogger(log.Logger)),
			history.NewLookup(st.Builds(), nil, log.Logger),
			log.Logger,
		)
		// Resolve as the build form would.
		ctx = resolver.WithRequest(ctx, resolver.NewPathRequest(resolver.JobPath(job.Name)+"/build", st.Jobs()))
		values := svc.Defaults(ctx, job)

		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", name, values[name].Value)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate the file without writing")
	rootCmd.AddCommand(importCmd, exportCmd, defaultsCmd)
}
