package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"stealthcompany.com/docgateway/internal/api"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/docstore"
	"stealthcompany.com/docgateway/internal/orchestrator"
	"stealthcompany.com/docgateway/pkg/zerolog_config"
)

// ErrNotFound is returned when the requested document does not exist
var ErrNotFound = errors.New("document not found")

// ExecutorFactory builds the executor a command runs against, plus a cleanup func
type ExecutorFactory func(configFile string) (api.Executor, func() error, error)

type options struct {
	configFile string
	bucket     string
	logLevel   string
	factory    ExecutorFactory
}

// NewRootCmd creates the docctl command tree backed by the configured store
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultFactory)
}

func newRootCmd(factory ExecutorFactory) *cobra.Command {
	opts := &options{factory: factory}

	root := &cobra.Command{
		Use:           "docctl",
		Short:         "Run document operations against the document store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog_config.ParseLevel(opts.logLevel))
			log.Logger = zerolog_config.NewLogger(cmd.ErrOrStderr(), "", "")
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "optional config file (yaml, json or toml)")
	root.PersistentFlags().StringVarP(&opts.bucket, "bucket", "b", "", "bucket name")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	_ = root.MarkPersistentFlagRequired("bucket")

	root.AddCommand(
		newOperationCmd(opts, docstore.OpGet, "get <id>", "Read a document by id", false),
		newOperationCmd(opts, docstore.OpRemove, "remove <id>", "Delete a document by id", false),
		newOperationCmd(opts, docstore.OpCreate, "create <id>", "Insert a document, failing if the id exists", true),
		newOperationCmd(opts, docstore.OpUpsert, "upsert <id>", "Insert or replace a document", true),
		newExecCmd(opts),
	)
	return root
}

func newOperationCmd(opts *options, op docstore.Operation, use, short string, withPayload bool) *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout(), args[0], op, payload)
		},
	}
	if withPayload {
		cmd.Flags().StringVarP(&payload, "payload", "p", "", "document body as a JSON object")
		_ = cmd.MarkFlagRequired("payload")
	}
	return cmd
}

func newExecCmd(opts *options) *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "exec <operation> <id>",
		Short: "Run any operation kind (CREATE, UPSERT, REMOVE, GET)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := docstore.ParseOperation(args[0])
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, cmd.OutOrStdout(), args[1], op, payload)
		},
	}
	cmd.Flags().StringVarP(&payload, "payload", "p", "", "document body as a JSON object")
	return cmd
}

func run(ctx context.Context, opts *options, out io.Writer, id string, op docstore.Operation, rawPayload string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var payload map[string]any
	if rawPayload != "" {
		if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}

	exec, cleanup, err := opts.factory(opts.configFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store connections")
		}
	}()

	res, err := exec.Execute(ctx, id, opts.bucket, payload, op)
	if err != nil {
		return err
	}
	if res.Status == docstore.StatusNotFound {
		return fmt.Errorf("%s in bucket %s: %w", id, opts.bucket, ErrNotFound)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Document)
}

func defaultFactory(configFile string) (api.Executor, func() error, error) {
	props, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	svc, err := orchestrator.NewService(props, props.Settings())
	if err != nil {
		return nil, nil, err
	}
	return svc.Gateway, svc.Close, nil
}
