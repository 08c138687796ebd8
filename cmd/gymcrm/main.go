package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/xavierca1/gymcrm-sync/internal/bootstrap"
	"github.com/xavierca1/gymcrm-sync/internal/config"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
	"github.com/xavierca1/gymcrm-sync/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gymcrm",
		Short: "Ferramentas de operação do sync HighLevel -> CRM da academia",
		// Erros já saem no stderr pelo main.
		SilenceUsage: true,
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Roda um sync completo com o pipeline do HighLevel",
		RunE:  runSync,
	}
	syncCmd.Flags().Bool("queue", false, "Publica os eventos de status no RabbitMQ")

	pipelinesCmd := &cobra.Command{
		Use:   "pipelines",
		Short: "Lista os pipelines da location e marca o da academia",
		RunE:  runPipelines,
	}

	initTablesCmd := &cobra.Command{
		Use:   "init-tables",
		Short: "Cria as tabelas e headers que faltam no row store",
		RunE:  runInitTables,
	}

	rootCmd.AddCommand(syncCmd, pipelinesCmd, initTablesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newApp(cmd *cobra.Command, opts bootstrap.Options) (*bootstrap.App, context.CancelFunc, error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	cmd.SetContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		stop()
		return nil, nil, err
	}
	app, err := bootstrap.New(ctx, cfg, opts)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return app, func() {
		app.Close()
		stop()
	}, nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	withQueue, _ := cmd.Flags().GetBool("queue")
	app, done, err := newApp(cmd, bootstrap.Options{WithQueue: withQueue})
	if err != nil {
		return err
	}
	defer done()

	if err := app.EnsureTables(cmd.Context()); err != nil {
		return err
	}
	report, err := app.Sync.Execute(cmd.Context())
	if err != nil {
		return fmt.Errorf("sync falhou: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), report)
}

func runPipelines(cmd *cobra.Command, _ []string) error {
	app, done, err := newApp(cmd, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer done()

	pipelines, err := app.CRM.ListPipelines(cmd.Context())
	if err != nil {
		return err
	}
	writePipelines(cmd.OutOrStdout(), pipelines, usecase.FindGymPipeline(pipelines, app.Config.PipelineID))
	return nil
}

func runInitTables(cmd *cobra.Command, _ []string) error {
	app, done, err := newApp(cmd, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer done()
	return app.EnsureTables(cmd.Context())
}

func writePipelines(w io.Writer, pipelines []entity.Pipeline, gym *entity.Pipeline) {
	for _, p := range pipelines {
		marker := " "
		if gym != nil && gym.ID == p.ID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  %s\n", marker, p.ID, p.Name)
		for _, s := range p.Stages {
			fmt.Fprintf(w, "      - %s  %s\n", s.ID, s.Name)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
